package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/employee/domain"
	"go.uber.org/zap"
)

const maxImportRows = 5000

// Import reads "email,name[,points]" rows. An optional header row is
// skipped. Row-level validation failures are collected and do not stop the
// import; store failures abort it.
func (s *Service) Import(ctx context.Context, tenantID snowflake.ID, r io.Reader) (domain.ImportResult, error) {
	result := domain.ImportResult{Errors: []domain.RowError{}}
	if tenantID == 0 {
		return result, domain.ErrNotFound
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Errors = append(result.Errors, domain.RowError{Row: parseErr.Line, Error: domain.ErrInvalidCSV.Error()})
				continue
			}
			return result, domain.ErrInvalidCSV
		}
		records++
		if records > maxImportRows {
			return result, domain.ErrInvalidCSV
		}

		row, _ := reader.FieldPos(0)
		if blankRecord(record) {
			result.Skipped++
			continue
		}
		if records == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "email") {
			continue
		}

		req, rowErr := parseRecord(tenantID, record)
		if rowErr != nil {
			result.Errors = append(result.Errors, domain.RowError{Row: row, Email: strings.TrimSpace(record[0]), Error: rowErr.Error()})
			continue
		}

		if _, err := s.Create(ctx, req); err != nil {
			if isRowError(err) {
				result.Errors = append(result.Errors, domain.RowError{Row: row, Email: req.Email, Error: err.Error()})
				continue
			}
			return result, err
		}
		result.Created++
	}

	s.log.Info("employee import finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("created", result.Created),
		zap.Int("failed", len(result.Errors)),
	)
	return result, nil
}

func parseRecord(tenantID snowflake.ID, record []string) (domain.CreateRequest, error) {
	if len(record) < 2 {
		return domain.CreateRequest{}, domain.ErrInvalidName
	}
	req := domain.CreateRequest{
		TenantID: tenantID,
		Email:    strings.TrimSpace(record[0]),
		Name:     strings.TrimSpace(record[1]),
	}
	if len(record) > 2 {
		if raw := strings.TrimSpace(record[2]); raw != "" {
			points, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || points < 0 {
				return domain.CreateRequest{}, domain.ErrInvalidPoints
			}
			req.Points = &points
		}
	}
	return req, nil
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
