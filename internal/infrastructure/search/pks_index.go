// Package search keeps PKS submissions in an Elasticsearch index for admin full-text search.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

type PKSIndex struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewPKSIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *PKSIndex {
	return &PKSIndex{ES: es, Index: index, Logger: logger}
}

type pksDoc struct {
	ID           int64  `json:"id"`
	Company      string `json:"company"`
	OriginalName string `json:"original_name"`
	Status       string `json:"status"`
	UserID       int64  `json:"user_id"`
	OwnerName    string `json:"owner_name,omitempty"`
	OwnerEmail   string `json:"owner_email,omitempty"`
	SubmittedAt  string `json:"submitted_at"`
}

func toDoc(s *entity.Submission) pksDoc {
	d := pksDoc{
		ID:           s.ID,
		Company:      s.Company,
		OriginalName: s.OriginalName,
		Status:       string(s.Status),
		UserID:       s.UserID,
		SubmittedAt:  s.SubmittedAt.UTC().Format(time.RFC3339Nano),
	}
	if s.Owner != nil {
		d.OwnerName = s.Owner.Name
		d.OwnerEmail = s.Owner.Email
	}
	return d
}

// IndexSubmission upserts the submission document.
func (x *PKSIndex) IndexSubmission(ctx context.Context, s *entity.Submission) error {
	b, err := json.Marshal(toDoc(s))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      x.Index,
		DocumentID: strconv.FormatInt(s.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		if x.Logger != nil {
			x.Logger.WithField("status", res.Status()).WithField("pks_id", s.ID).Warn("es index response error")
		}
		return fmt.Errorf("search: index %s: %s", x.Index, res.Status())
	}
	return nil
}

// SearchSubmissions runs a multi_match over company, file and owner fields and returns ids by relevance.
func (x *PKSIndex) SearchSubmissions(ctx context.Context, q string, size int) ([]int64, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"company^3", "owner_name^2", "owner_email", "original_name"},
			},
		},
		"_source": []string{"id"},
		"size":    size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := x.ES.Search(
		x.ES.Search.WithContext(c),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search: query %s: %s", x.Index, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
