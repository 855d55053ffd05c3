package host

import (
	"context"

	"glanceboard.app/embedgate/internal/service"
)

// RecordSession is the per-invocation view of one host record. The record
// type arrives with the queue message, so a type check costs no I/O; the
// record body is fetched lazily on first field access and cached for the
// rest of the invocation. Sessions are not safe for concurrent use.
type RecordSession struct {
	client     *Client
	recordID   string
	recordType string
	record     *Record
}

var (
	_ service.RecordContext = (*RecordSession)(nil)
	_ service.OutputSink    = (*RecordSession)(nil)
)

func (c *Client) Session(recordID, recordType string) *RecordSession {
	return &RecordSession{
		client:     c,
		recordID:   recordID,
		recordType: recordType,
	}
}

func (s *RecordSession) RecordType() string {
	return s.recordType
}

// Value returns the named field's value, or empty string when the record has
// no such field.
func (s *RecordSession) Value(ctx context.Context, fieldID string) (string, error) {
	record, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return record.Fields[fieldID].Value, nil
}

// Field locates a writable slot on the record. The bool is false when the
// record has no field with that id.
func (s *RecordSession) Field(ctx context.Context, fieldID string) (service.SinkField, bool, error) {
	record, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	if _, ok := record.Fields[fieldID]; !ok {
		return nil, false, nil
	}
	return &sinkField{client: s.client, recordID: s.recordID, fieldID: fieldID}, true, nil
}

func (s *RecordSession) load(ctx context.Context) (*Record, error) {
	if s.record != nil {
		return s.record, nil
	}
	record, err := s.client.GetRecord(ctx, s.recordID)
	if err != nil {
		return nil, err
	}
	s.record = record
	return record, nil
}

type sinkField struct {
	client   *Client
	recordID string
	fieldID  string
}

func (f *sinkField) Write(ctx context.Context, content string, visible bool) error {
	return f.client.WriteField(ctx, f.recordID, f.fieldID, FieldWrite{
		Content: content,
		Visible: visible,
	})
}
