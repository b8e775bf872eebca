package civicache

import (
	"encoding/json"
	"fmt"
)

// DecodeReport decodes one report from a server payload.
func DecodeReport(data []byte) (Report, error) {
	var r Report

	err := json.Unmarshal(data, &r)
	if err != nil {
		return Report{}, fmt.Errorf("%w: report: %w", ErrInvalidPayload, err)
	}

	return r, nil
}

// DecodeReports decodes a JSON array of reports.
func DecodeReports(data []byte) ([]Report, error) {
	var rs []Report

	err := json.Unmarshal(data, &rs)
	if err != nil {
		return nil, fmt.Errorf("%w: reports: %w", ErrInvalidPayload, err)
	}

	return rs, nil
}

// DecodeComment decodes one comment from a server payload.
func DecodeComment(data []byte) (Comment, error) {
	var cm Comment

	err := json.Unmarshal(data, &cm)
	if err != nil {
		return Comment{}, fmt.Errorf("%w: comment: %w", ErrInvalidPayload, err)
	}

	return cm, nil
}

// DecodeComments decodes a JSON array of comments.
func DecodeComments(data []byte) ([]Comment, error) {
	var cms []Comment

	err := json.Unmarshal(data, &cms)
	if err != nil {
		return nil, fmt.Errorf("%w: comments: %w", ErrInvalidPayload, err)
	}

	return cms, nil
}

// DecodeStats decodes the stats aggregate from a server payload.
func DecodeStats(data []byte) (Stats, error) {
	var s Stats

	err := json.Unmarshal(data, &s)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: stats: %w", ErrInvalidPayload, err)
	}

	return s, nil
}
