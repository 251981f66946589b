package domain

import (
    "strings"
    "time"
)

type PassportStatus string

const (
    PassportPending  PassportStatus = "pending"
    PassportVerified PassportStatus = "verified"
    PassportFailed   PassportStatus = "failed"
    PassportDisputed PassportStatus = "disputed"
)

type EvidenceType string

const (
    EvidenceCodeMatch     EvidenceType = "code_match"
    EvidenceVisualMatch   EvidenceType = "visual_match"
    EvidenceExpertReview  EvidenceType = "expert_review"
    EvidenceCommunityVote EvidenceType = "community_vote"
)

// Evidence is one reason a passport was marked verified (or not).
type Evidence struct {
    Type       EvidenceType `json:"type"`
    Confidence float64      `json:"confidence"`
    Details    string       `json:"details"`
    Timestamp  time.Time    `json:"timestamp"`
}

// Transfer records one change of owner.
type Transfer struct {
    FromEmail string    `json:"from_email"`
    ToEmail   string    `json:"to_email"`
    Date      time.Time `json:"date"`
    Verified  bool      `json:"verified"`
}

// Passport is the digital product passport of one physical shirt. UID is the
// public identifier printed on its QR code (KT-YYYY-XXXXXX).
type Passport struct {
    ID               string         `json:"id"`
    UID              string         `json:"uid"`
    ProductCodeID    string         `json:"product_code_id"`
    ProductCode      string         `json:"product_code"`
    OwnerEmail       string         `json:"owner_email"`
    OwnerName        string         `json:"owner_name,omitempty"`
    TransferHistory  []Transfer     `json:"transfer_history"`
    Status           PassportStatus `json:"verification_status"`
    VerificationDate *time.Time     `json:"verification_date,omitempty"`
    Evidence         []Evidence     `json:"verification_evidence"`
    QRCodeURL        string         `json:"qr_code_url,omitempty"`
    Notes            string         `json:"notes,omitempty"`
    CreatedAt        time.Time      `json:"created_at"`
    UpdatedAt        time.Time      `json:"updated_at"`
}

// OwnedBy compares owner addresses case-insensitively.
func (p Passport) OwnedBy(email string) bool {
    return strings.EqualFold(strings.TrimSpace(p.OwnerEmail), strings.TrimSpace(email))
}

// Public returns a copy safe to show anyone holding the QR code: owner
// addresses keep only their first letter and domain.
func (p Passport) Public() Passport {
    out := p
    out.OwnerEmail = MaskEmail(p.OwnerEmail)
    out.TransferHistory = make([]Transfer, len(p.TransferHistory))
    for i, t := range p.TransferHistory {
        t.FromEmail, t.ToEmail = MaskEmail(t.FromEmail), MaskEmail(t.ToEmail)
        out.TransferHistory[i] = t
    }
    out.Evidence = append([]Evidence(nil), p.Evidence...)
    return out
}

// MaskEmail turns "jane@example.com" into "j***@example.com".
func MaskEmail(email string) string {
    at := strings.LastIndex(email, "@")
    if at <= 0 {
        return ""
    }
    return email[:1] + "***" + email[at:]
}

// KitAttributes are the attributes a person can read off a shirt when
// checking it against its code.
type KitAttributes struct {
    PrimaryColor string `json:"primary_color,omitempty"`
    KitType      string `json:"kit_type,omitempty"`
    Brand        string `json:"brand,omitempty"`
}

// CrossValidation is the outcome of checking KitAttributes against the
// catalogue record for a code. Confidence is the share of compared
// attributes that matched, or 50 when nothing could be compared.
type CrossValidation struct {
    Passed     bool     `json:"passed"`
    Confidence float64  `json:"confidence"`
    Checked    int      `json:"checked"`
    Mismatches []string `json:"mismatches"`
}
