package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"textile-erp/internal/apperror"
	"textile-erp/internal/export"
	"textile-erp/internal/model"
	"textile-erp/internal/repository"

	"github.com/ttacon/libphonenumber"
)

// --- DTOs ---

type CreateLedgerRequest struct {
	Name          string `json:"name" binding:"required,max=255"`
	LedgerType    string `json:"ledger_type" binding:"required,oneof=VENDOR WEAVER STITCHER CUSTOMER"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Pincode       string `json:"pincode"`
	GSTNumber     string `json:"gst_number"`
	PANNumber     string `json:"pan_number"`
}

type UpdateLedgerRequest struct {
	Name          *string `json:"name"`
	LedgerType    *string `json:"ledger_type"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	Pincode       *string `json:"pincode"`
	GSTNumber     *string `json:"gst_number"`
	PANNumber     *string `json:"pan_number"`
	IsActive      *bool   `json:"is_active"`
}

// --- Interface ---

type LedgerService interface {
	CreateLedger(ctx context.Context, userID string, req CreateLedgerRequest) (*model.Ledger, error)
	UpdateLedger(ctx context.Context, userID, id string, req UpdateLedgerRequest) (*model.Ledger, error)
	DeleteLedger(ctx context.Context, userID, id string) error
	GetLedger(ctx context.Context, id string) (*model.Ledger, error)
	ListLedgers(ctx context.Context, q ListQuery) ([]model.Ledger, int64, error)
	ExportLedgers(ctx context.Context, q ListQuery) (export.Table, error)
}

type ledgerService struct {
	ledgerRepo repository.LedgerRepository
	txManager  repository.TransactionManager
	audit      auditor
}

func NewLedgerService(ledgerRepo repository.LedgerRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) LedgerService {
	return &ledgerService{ledgerRepo: ledgerRepo, txManager: txManager, audit: auditor{repo: auditRepo}}
}

// --- Validation helpers ---

const phoneRegion = "IN"

var (
	gstPattern     = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	panPattern     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
)

// normalizePhone validates phone for the default region and returns it in E.164
func normalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	num, err := libphonenumber.Parse(phone, phoneRegion)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return "", apperror.Validation("phone %q is not a valid phone number", phone)
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

func normalizeTaxIDs(gst, pan string) (string, string, error) {
	gst = strings.ToUpper(strings.TrimSpace(gst))
	pan = strings.ToUpper(strings.TrimSpace(pan))
	if gst != "" && !gstPattern.MatchString(gst) {
		return "", "", apperror.Validation("gst_number %q is not a valid GSTIN", gst)
	}
	if pan != "" && !panPattern.MatchString(pan) {
		return "", "", apperror.Validation("pan_number %q is not a valid PAN", pan)
	}
	// the PAN is embedded in characters 3-12 of the GSTIN
	if gst != "" && pan != "" && gst[2:12] != pan {
		return "", "", apperror.Validation("pan_number does not match the PAN inside gst_number")
	}
	return gst, pan, nil
}

func validatePincode(pincode string) error {
	if pincode != "" && !pincodePattern.MatchString(pincode) {
		return apperror.Validation("pincode must be 6 digits")
	}
	return nil
}

// --- CRUD ---

func (s *ledgerService) CreateLedger(ctx context.Context, userID string, req CreateLedgerRequest) (*model.Ledger, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	gst, pan, err := normalizeTaxIDs(req.GSTNumber, req.PANNumber)
	if err != nil {
		return nil, err
	}
	if err := validatePincode(req.Pincode); err != nil {
		return nil, err
	}

	ledger := &model.Ledger{
		Name:          req.Name,
		LedgerType:    req.LedgerType,
		ContactPerson: req.ContactPerson,
		Phone:         phone,
		Email:         strings.TrimSpace(req.Email),
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		Pincode:       req.Pincode,
		GSTNumber:     gst,
		PANNumber:     pan,
		IsActive:      true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ledgerRepo.Create(txCtx, ledger); err != nil {
			return apperror.FromDB(err, "ledger")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionCreateLedger, ledger.ID.String(), ledger.Name, map[string]interface{}{
			"ledger_type": ledger.LedgerType,
		})
	})
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

func (s *ledgerService) UpdateLedger(ctx context.Context, userID, id string, req UpdateLedgerRequest) (*model.Ledger, error) {
	uid, err := parseID(id, "ledger ID")
	if err != nil {
		return nil, err
	}

	var ledger *model.Ledger
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ledger, err = s.ledgerRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "ledger")
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperror.Validation("name cannot be empty")
			}
			ledger.Name = name
		}
		if req.LedgerType != nil && *req.LedgerType != ledger.LedgerType {
			if err := validate.Var(*req.LedgerType, "oneof=VENDOR WEAVER STITCHER CUSTOMER"); err != nil {
				return apperror.Validation("ledger_type must be one of: VENDOR, WEAVER, STITCHER, CUSTOMER")
			}
			refs, err := s.ledgerRepo.CountReferences(txCtx, uid)
			if err != nil {
				return fmt.Errorf("failed to check ledger references: %w", err)
			}
			if refs.Any() {
				return apperror.Conflict("ledger type cannot change because the ledger is referenced by %s", refs.String())
			}
			ledger.LedgerType = *req.LedgerType
		}
		if req.Phone != nil {
			phone, err := normalizePhone(*req.Phone)
			if err != nil {
				return err
			}
			ledger.Phone = phone
		}
		if req.Email != nil {
			email := strings.TrimSpace(*req.Email)
			if email != "" {
				if err := validate.Var(email, "email"); err != nil {
					return apperror.Validation("email must be a valid email")
				}
			}
			ledger.Email = email
		}
		gst, pan := ledger.GSTNumber, ledger.PANNumber
		if req.GSTNumber != nil {
			gst = *req.GSTNumber
		}
		if req.PANNumber != nil {
			pan = *req.PANNumber
		}
		if ledger.GSTNumber, ledger.PANNumber, err = normalizeTaxIDs(gst, pan); err != nil {
			return err
		}
		if req.Pincode != nil {
			if err := validatePincode(*req.Pincode); err != nil {
				return err
			}
			ledger.Pincode = *req.Pincode
		}
		if req.ContactPerson != nil {
			ledger.ContactPerson = *req.ContactPerson
		}
		if req.Address != nil {
			ledger.Address = *req.Address
		}
		if req.City != nil {
			ledger.City = *req.City
		}
		if req.State != nil {
			ledger.State = *req.State
		}
		if req.IsActive != nil {
			ledger.IsActive = *req.IsActive
		}

		if err := s.ledgerRepo.Update(txCtx, ledger); err != nil {
			return apperror.FromDB(err, "ledger")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionUpdateLedger, ledger.ID.String(), ledger.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

// DeleteLedger soft deletes a ledger nothing references
func (s *ledgerService) DeleteLedger(ctx context.Context, userID, id string) error {
	uid, err := parseID(id, "ledger ID")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ledger, err := s.ledgerRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "ledger")
		}
		refs, err := s.ledgerRepo.CountReferences(txCtx, uid)
		if err != nil {
			return fmt.Errorf("failed to check ledger references: %w", err)
		}
		if refs.Any() {
			return blockedBy(fmt.Sprintf("ledger %q", ledger.Name), "deleted", refs)
		}
		if err := s.ledgerRepo.Delete(txCtx, uid); err != nil {
			return apperror.FromDB(err, "ledger")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionDeleteLedger, ledger.ID.String(), ledger.Name, nil)
	})
}

func (s *ledgerService) GetLedger(ctx context.Context, id string) (*model.Ledger, error) {
	uid, err := parseID(id, "ledger ID")
	if err != nil {
		return nil, err
	}
	ledger, err := s.ledgerRepo.FindByID(ctx, uid)
	if err != nil {
		return nil, apperror.FromDB(err, "ledger")
	}
	return ledger, nil
}

func (s *ledgerService) ListLedgers(ctx context.Context, q ListQuery) ([]model.Ledger, int64, error) {
	f, err := q.Filter()
	if err != nil {
		return nil, 0, err
	}
	ledgers, total, err := s.ledgerRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch ledgers: %w", err)
	}
	return ledgers, total, nil
}

func (s *ledgerService) ExportLedgers(ctx context.Context, q ListQuery) (export.Table, error) {
	q.Page, q.Limit = 0, 0
	ledgers, _, err := s.ListLedgers(ctx, q)
	if err != nil {
		return export.Table{}, err
	}
	return export.Ledgers(ledgers), nil
}
