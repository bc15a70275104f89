package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"textile-erp/internal/apperror"
	"textile-erp/internal/events"
	"textile-erp/internal/model"
	"textile-erp/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

// newValidator reads the same `binding` tags gin uses, so requests built outside the HTTP
// layer get the same checks.
func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func validateStruct(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Validation("%s", err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return apperror.Validation("%s", strings.Join(msgs, "; "))
}

// --- Parsing helpers ---

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid %s", field)
	}
	return id, nil
}

func parseOptionalID(raw, field string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseUserID returns nil for system calls or tokens without a uuid subject
func parseUserID(raw string) *uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func parseDate(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(model.DateLayout, raw); err == nil {
		return t, nil
	}
	// a timestamp keeps the calendar day it was written in
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, apperror.Validation("%s must be a date in YYYY-MM-DD format", field)
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.Validation("%s must be a number", field)
	}
	return d, nil
}

func parseNonNegative(raw, field string) (decimal.Decimal, error) {
	d, err := parseDecimal(raw, field)
	if err != nil {
		return d, err
	}
	if d.IsNegative() {
		return d, apperror.Validation("%s cannot be negative", field)
	}
	return d, nil
}

func parsePositive(raw, field string) (decimal.Decimal, error) {
	d, err := parseDecimal(raw, field)
	if err != nil {
		return d, err
	}
	if !d.IsPositive() {
		return d, apperror.Validation("%s must be greater than 0", field)
	}
	return d, nil
}

// --- List query ---

// ListQuery is the raw list request as received from the REST layer
type ListQuery struct {
	Search         string
	DateFrom       string
	DateTo         string
	MaterialType   string
	Status         string
	LedgerID       string
	Type           string
	Classification string
	SortBy         string
	SortOrder      string
	Page           int
	Limit          int
}

// Filter validates q into a repository filter
func (q ListQuery) Filter() (repository.ListFilter, error) {
	f := repository.ListFilter{
		Search:         strings.TrimSpace(q.Search),
		MaterialType:   q.MaterialType,
		Status:         q.Status,
		Type:           q.Type,
		Classification: q.Classification,
		SortBy:         q.SortBy,
		SortOrder:      q.SortOrder,
		Page:           q.Page,
		Limit:          q.Limit,
	}
	if q.DateFrom != "" {
		from, err := parseDate(q.DateFrom, "date_from")
		if err != nil {
			return f, err
		}
		f.DateFrom = &from
	}
	if q.DateTo != "" {
		to, err := parseDate(q.DateTo, "date_to")
		if err != nil {
			return f, err
		}
		f.DateTo = &to
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return f, apperror.Validation("date_to cannot be before date_from")
	}
	if q.LedgerID != "" {
		id, err := parseID(q.LedgerID, "ledger_id")
		if err != nil {
			return f, err
		}
		f.LedgerID = &id
	}
	if f.MaterialType != "" && !model.IsMaterialType(f.MaterialType) {
		return f, apperror.Validation("material_type must be one of: Cotton, Silk, Wool, Polyester, Linen")
	}
	return f, nil
}

// --- Audit ---

type auditor struct {
	repo repository.AuditRepository
}

// record writes an audit row; inside RunInTx it commits or rolls back with the change
func (a auditor) record(ctx context.Context, userID *uuid.UUID, action, entityID, entityName string, details interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	entry := &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(raw),
	}
	if err := a.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// blockedBy turns downstream references into a Conflict naming them
func blockedBy(entity, action string, refs repository.References) error {
	return apperror.Conflict("%s cannot be %s because it is referenced by %s", entity, action, refs.String())
}

// requireLedger loads a ledger and checks its type
func requireLedger(ctx context.Context, repo repository.LedgerRepository, id uuid.UUID, wantType, field string) (*model.Ledger, error) {
	ledger, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromDB(err, field)
	}
	if wantType != "" && ledger.LedgerType != wantType {
		return nil, apperror.Validation("%s must be a %s ledger, got %s", field, wantType, ledger.LedgerType)
	}
	if !ledger.IsActive {
		return nil, apperror.Validation("%s %q is inactive", field, ledger.Name)
	}
	return ledger, nil
}

func publisherOrNop(p events.Publisher) events.Publisher {
	if p == nil {
		return events.Nop{}
	}
	return p
}

func statusEvent(entity, id, name string, from, to interface{}) events.Event {
	return events.Event{
		Type:       events.TypeStatusChanged,
		Entity:     entity,
		EntityID:   id,
		EntityName: name,
		Data:       map[string]interface{}{"from": from, "to": to},
	}
}
