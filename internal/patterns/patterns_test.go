package patterns

import (
    "strings"
    "testing"

    "github.com/leanovate/gopter"
    "github.com/leanovate/gopter/gen"
    "github.com/leanovate/gopter/prop"
    "github.com/stretchr/testify/assert"

    "kitcheck/internal/domain"
)

func TestDetectBrand(t *testing.T) {
    cases := []struct {
        code string
        want domain.Brand
    }{
        {"CZ3984-100", domain.BrandNike},
        {"638920-013", domain.BrandNike},
        {"118834", domain.BrandNike},
        {"IS7462", domain.BrandAdidas},
        {"M36158", domain.BrandAdidas},
        {"IT97851", domain.BrandAdidas},
        {"736251-01", domain.BrandPuma},
        {"96281-U", domain.BrandUmbro},
        {"96281", domain.BrandUmbro},
        {"  cz3984-100 ", domain.BrandNike},
        {"96281-u", domain.BrandUmbro},
        {"HELLO", domain.BrandUnknown},
        {"", domain.BrandUnknown},
    }
    for _, tc := range cases {
        t.Run(tc.code, func(t *testing.T) {
            assert.Equal(t, tc.want, DetectBrand(tc.code))
        })
    }
}

func TestIsValidFormat_RejectsEmbeddedCodes(t *testing.T) {
    assert.True(t, IsValidFormat("638920-013", domain.BrandNike))
    assert.False(t, IsValidFormat("1638920-0134", domain.BrandNike))
    assert.False(t, IsValidFormat("X638920-013", domain.BrandNike))
    assert.False(t, IsValidFormat("CZ3984-1000", domain.BrandNike))
    assert.Equal(t, domain.BrandUnknown, DetectBrand("1638920-0134"))
    assert.Equal(t, domain.BrandUnknown, DetectBrand("ref 638920-013"))
}

func TestIsValidFormat_WrongBrand(t *testing.T) {
    assert.False(t, IsValidFormat("IS7462", domain.BrandNike))
    assert.True(t, IsValidFormat("is7462", domain.BrandAdidas))
    assert.False(t, IsValidFormat("IS7462", domain.BrandUnknown))
    assert.False(t, HasPatterns(domain.BrandUnknown))
    assert.True(t, HasPatterns(domain.BrandPuma))
}

func TestIsLegacyNike(t *testing.T) {
    assert.True(t, IsLegacyNike("245435-623"))
    assert.False(t, IsLegacyNike("CZ3984-100"))
    assert.False(t, IsLegacyNike("736251-01"))
}

func TestDetectBrand_CaseInsensitiveAndIdempotent(t *testing.T) {
    properties := gopter.NewProperties(nil)

    codeGen := gen.OneGenOf(
        gen.RegexMatch(`[a-zA-Z]{2}[0-9]{4}-[0-9]{3}`),
        gen.RegexMatch(`[0-9]{6}(-[0-9]{2,3})?`),
        gen.RegexMatch(`[a-zA-Z][0-9]{5}`),
        gen.RegexMatch(`[0-9]{5}-[uU]`),
        gen.AlphaString(),
    )

    properties.Property("upper-casing never changes the brand", prop.ForAll(
        func(code string) bool {
            return DetectBrand(code) == DetectBrand(strings.ToUpper(code))
        },
        codeGen,
    ))
    properties.Property("detected brand validates its own code", prop.ForAll(
        func(code string) bool {
            b := DetectBrand(code)
            if b == domain.BrandUnknown {
                return true
            }
            return IsValidFormat(code, b) && DetectBrand(domain.NormalizeCode(code)) == b
        },
        codeGen,
    ))

    properties.TestingRun(t, gopter.ConsoleReporter(false))
}
