package memory

import (
    "fmt"
    "os"

    "gopkg.in/yaml.v3"

    "kitcheck/internal/domain"
)

type seedFile struct {
    Products []struct {
        Code                 string `yaml:"code"`
        Brand                string `yaml:"brand"`
        Team                 string `yaml:"team"`
        Season               string `yaml:"season"`
        KitType              string `yaml:"kit_type"`
        Variant              string `yaml:"variant"`
        Verified             bool   `yaml:"verified"`
        VerificationSource   string `yaml:"verification_source"`
        PrimaryColor         string `yaml:"primary_color"`
        Sponsor              string `yaml:"sponsor"`
        Technology           string `yaml:"technology"`
        Tier                 string `yaml:"tier"`
        LabelPositionEra     string `yaml:"label_position_era"`
        CountryOfManufacture string `yaml:"country_of_manufacture"`
        ExpectedSuffixDigit  *int   `yaml:"expected_suffix_digit"`
    } `yaml:"products"`
    Blacklist []struct {
        Code          string `yaml:"code"`
        Brand         string `yaml:"brand"`
        Reason        string `yaml:"reason"`
        Severity      string `yaml:"severity"`
        LegitimateUse string `yaml:"legitimate_use"`
    } `yaml:"blacklist"`
}

// Seed loads products and blacklist entries from YAML into s.
func (s *Store) Seed(data []byte) error {
    var f seedFile
    if err := yaml.Unmarshal(data, &f); err != nil {
        return fmt.Errorf("parse seed: %w", err)
    }
    for i, p := range f.Products {
        if _, err := domain.ValidateCode(p.Code); err != nil {
            return fmt.Errorf("seed product %d: %w", i, err)
        }
        s.AddProduct(domain.ProductCode{
            Code: p.Code, Brand: p.Brand, Team: p.Team, Season: p.Season, KitType: p.KitType,
            Variant: p.Variant, Verified: p.Verified, VerificationSource: p.VerificationSource,
            PrimaryColor: p.PrimaryColor, Sponsor: p.Sponsor, Technology: p.Technology, Tier: p.Tier,
            LabelPositionEra: p.LabelPositionEra, CountryOfManufacture: p.CountryOfManufacture,
            ExpectedSuffixDigit: p.ExpectedSuffixDigit,
        })
    }
    for i, b := range f.Blacklist {
        if _, err := domain.ValidateCode(b.Code); err != nil {
            return fmt.Errorf("seed blacklist %d: %w", i, err)
        }
        sev := domain.Severity(b.Severity)
        if sev == "" {
            sev = domain.SeverityMedium
        }
        s.AddBlacklist(domain.BlacklistCode{Code: b.Code, Brand: b.Brand, Reason: b.Reason, Severity: sev, LegitimateUse: b.LegitimateUse})
    }
    return nil
}

// SeedFile is Seed from a file on disk.
func (s *Store) SeedFile(path string) error {
    data, err := os.ReadFile(path)
    if err != nil {
        return fmt.Errorf("read seed: %w", err)
    }
    return s.Seed(data)
}
