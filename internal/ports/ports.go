package ports

import (
    "context"

    "kitcheck/internal/domain"
)

// VerifyOptions narrows a verification. BrandFilter "" or "all" means none.
type VerifyOptions struct {
    BrandFilter string
}

// Verifier runs the multi-signal authentication of a product code.
type Verifier interface {
    VerifyProductCode(ctx context.Context, code string, opts VerifyOptions) (domain.VerificationResult, error)
    VerifyWithVisualData(ctx context.Context, code string, visual *domain.VisualObservation, brandFilter string) (domain.VerificationResult, error)
}

// CodeStatus is the batch-validation view of one code.
type CodeStatus struct {
    Code        string `json:"code"`
    Found       bool   `json:"found"`
    Verified    bool   `json:"verified"`
    Brand       string `json:"brand,omitempty"`
    Blacklisted bool   `json:"blacklisted"`
}

type BatchStats struct {
    Total       int `json:"total"`
    Found       int `json:"found"`
    Verified    int `json:"verified"`
    Blacklisted int `json:"blacklisted"`
}

// LookupResult is a direct reference lookup without scoring.
type LookupResult struct {
    Product        domain.ProductCode    `json:"product"`
    DetectedBrand  domain.Brand          `json:"detected_brand"`
    Blacklisted    bool                  `json:"blacklisted"`
    BlacklistEntry *domain.BlacklistCode `json:"blacklist_entry,omitempty"`
}

// Codes provides raw lookups and batch validation.
type Codes interface {
    Lookup(ctx context.Context, code string, brandFilter string) (LookupResult, error)
    ValidateBatch(ctx context.Context, codes []string) ([]CodeStatus, BatchStats, error)
}

type IssuePassportRequest struct {
    Code       string                `json:"code"`
    OwnerEmail string                `json:"owner_email"`
    OwnerName  string                `json:"owner_name,omitempty"`
    Notes      string                `json:"notes,omitempty"`
    Visual     *domain.KitAttributes `json:"visual_attributes,omitempty"`
}

type IssuedPassport struct {
    Passport domain.Passport         `json:"passport"`
    Product  domain.ProductCode      `json:"product_info"`
    Visual   *domain.CrossValidation `json:"cross_validation,omitempty"`
}

type TransferRequest struct {
    FromEmail string `json:"from_email"`
    ToEmail   string `json:"to_email"`
    ToName    string `json:"to_name,omitempty"`
}

// PassportView is a passport with the catalogue record it was issued for.
type PassportView struct {
    domain.Passport
    Product *domain.ProductCode `json:"product"`
}

// Passports issues, looks up and transfers digital product passports.
type Passports interface {
    Issue(ctx context.Context, req IssuePassportRequest) (IssuedPassport, error)
    Get(ctx context.Context, uid string) (PassportView, error)
    Transfer(ctx context.Context, uid string, req TransferRequest) (domain.Passport, error)
    CrossValidate(ctx context.Context, code string, visual domain.KitAttributes) (domain.CrossValidation, error)
}
