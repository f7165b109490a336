// ABOUTME: Multipart batch request codec for the Calendar API batch endpoint
// ABOUTME: Packs all queued mutations into one HTTP exchange to conserve quota
package sync

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"google.golang.org/api/calendar/v3"
)

// BatchMutate submits all requests as one multipart/mixed call to the
// batch endpoint. Results come back in request order; parts the service
// did not answer are simply absent, which the executor treats as partial
// failure.
func (s *GoogleEventService) BatchMutate(ctx context.Context, calendarID string, reqs []MutationRequest) ([]MutationResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	body, contentType, err := s.encodeBatchBody(calendarID, reqs)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.batchURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build batch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("batch request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("batch request rejected: %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	return decodeBatchResponse(resp, reqs)
}

// encodeBatchBody builds the multipart/mixed payload: one embedded HTTP
// request per mutation, each tagged with a Content-ID carrying its index.
func (s *GoogleEventService) encodeBatchBody(calendarID string, reqs []MutationRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	eventsPath := s.basePath + "/calendars/" + url.PathEscape(calendarID) + "/events"

	for i, req := range reqs {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", "application/http")
		header.Set("Content-ID", fmt.Sprintf("<item-%d>", i))

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create batch part: %w", err)
		}

		if err := writePartRequest(part, eventsPath, req); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize batch body: %w", err)
	}

	contentType := "multipart/mixed; boundary=" + writer.Boundary()
	return &buf, contentType, nil
}

// writePartRequest serializes one mutation as an embedded HTTP request.
// Every mutation suppresses attendee notifications and conference-data
// expansion.
func writePartRequest(w io.Writer, eventsPath string, req MutationRequest) error {
	switch req.Op {
	case OpCreate:
		return writeJSONPart(w, http.MethodPost, eventsPath+"?sendUpdates=none&conferenceDataVersion=0", req.Event)
	case OpUpdate:
		return writeJSONPart(w, http.MethodPut, eventsPath+"/"+url.PathEscape(req.TargetID)+"?sendUpdates=none&conferenceDataVersion=0", req.Event)
	case OpDelete:
		_, err := fmt.Fprintf(w, "DELETE %s/%s?sendUpdates=none HTTP/1.1\r\n\r\n", eventsPath, url.PathEscape(req.TargetID))
		return err
	}
	return fmt.Errorf("unknown mutation op %d", req.Op)
}

func writeJSONPart(w io.Writer, method, path string, event *calendar.Event) error {
	payload, err := event.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	_, err = fmt.Fprintf(w, "%s %s HTTP/1.1\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n%s", method, path, len(payload), payload)
	return err
}

// decodeBatchResponse parses the multipart response and maps each part
// back to its request by Content-ID. Results stay in request order.
func decodeBatchResponse(resp *http.Response, reqs []MutationRequest) ([]MutationResult, error) {
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch response content type: %w", err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("batch response is not multipart")
	}

	statuses := make(map[int]int)

	reader := multipart.NewReader(resp.Body, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read batch response part: %w", err)
		}

		idx, ok := partIndex(part.Header.Get("Content-ID"))
		if !ok || idx < 0 || idx >= len(reqs) {
			_ = part.Close()
			continue
		}

		partResp, err := http.ReadResponse(bufio.NewReader(part), nil)
		if err != nil {
			_ = part.Close()
			continue
		}
		_, _ = io.Copy(io.Discard, partResp.Body)
		_ = partResp.Body.Close()
		_ = part.Close()

		statuses[idx] = partResp.StatusCode
	}

	var results []MutationResult
	for i, req := range reqs {
		code, ok := statuses[i]
		if !ok {
			continue
		}
		results = append(results, MutationResult{
			Op:         req.Op,
			SourceID:   req.SourceID,
			TargetID:   req.TargetID,
			StatusCode: code,
		})
	}

	return results, nil
}

// partIndex extracts the request index from a response Content-ID such
// as "<response-item-3>".
func partIndex(contentID string) (int, bool) {
	id := strings.Trim(contentID, "<>")
	id = strings.TrimPrefix(id, "response-")
	if !strings.HasPrefix(id, "item-") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, "item-"))
	if err != nil {
		return 0, false
	}
	return n, true
}
