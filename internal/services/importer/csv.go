package importer

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

var paymentColumns = []string{"email", "date", "amount", "package", "method"}

var playerColumns = []string{
	"first_name", "last_name", "email", "phone", "date_of_birth", "area", "height", "weight",
	"preferred_hand", "preferred_position", "health_conditions", "training_goals",
	"guardian_name", "guardian_phone",
}

// table CSV с заголовком; колонки ищутся по имени без учёта регистра и пробелов.
type table struct {
	index map[string]int
	rows  [][]string
}

func readTable(r io.Reader, required []string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.InvalidInput("csv is empty")
	}
	if err != nil {
		return nil, apperr.InvalidInput("malformed csv header: %v", err)
	}

	t := &table{index: make(map[string]int, len(header))}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		name = strings.ReplaceAll(name, " ", "_")
		t.index[name] = i
	}
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, apperr.InvalidInput("csv missing required column: %s", col)
		}
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.InvalidInput("malformed csv: %v", err)
		}
		if isBlank(row) {
			continue
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func (t *table) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// DecodePaymentRows разбирает CSV исторических платежей с колонками
// email, date, amount, package, method.
func DecodePaymentRows(r io.Reader) ([]models.PaymentImportRow, error) {
	t, err := readTable(r, paymentColumns)
	if err != nil {
		return nil, err
	}
	rows := make([]models.PaymentImportRow, 0, len(t.rows))
	for _, row := range t.rows {
		rows = append(rows, models.PaymentImportRow{
			Email:   t.get(row, "email"),
			Date:    t.get(row, "date"),
			Amount:  t.get(row, "amount"),
			Package: t.get(row, "package"),
			Method:  t.get(row, "method"),
		})
	}
	return rows, nil
}

// DecodePlayerRows разбирает CSV игроков. Обязательны first_name, last_name и email,
// остальные колонки могут отсутствовать.
func DecodePlayerRows(r io.Reader) ([]models.PlayerImportRow, error) {
	t, err := readTable(r, playerColumns[:3])
	if err != nil {
		return nil, err
	}
	rows := make([]models.PlayerImportRow, 0, len(t.rows))
	for _, row := range t.rows {
		rows = append(rows, models.PlayerImportRow{
			FirstName:         t.get(row, "first_name"),
			LastName:          t.get(row, "last_name"),
			Email:             t.get(row, "email"),
			Phone:             t.get(row, "phone"),
			DateOfBirth:       t.get(row, "date_of_birth"),
			Area:              t.get(row, "area"),
			Height:            t.get(row, "height"),
			Weight:            t.get(row, "weight"),
			PreferredHand:     t.get(row, "preferred_hand"),
			PreferredPosition: t.get(row, "preferred_position"),
			HealthConditions:  t.get(row, "health_conditions"),
			TrainingGoals:     t.get(row, "training_goals"),
			GuardianName:      t.get(row, "guardian_name"),
			GuardianPhone:     t.get(row, "guardian_phone"),
		})
	}
	return rows, nil
}
