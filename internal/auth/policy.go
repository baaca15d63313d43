package auth

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// EmailPolicy decides which e-mail addresses may register. The institutional
// domain check varied between revisions of the service (subdomain-inclusive
// or not), so it is pluggable rather than hardcoded in the registration path.
type EmailPolicy interface {
	ValidateEmail(email string) error
}

// DefaultEmailDomain is the institutional domain accepted out of the box.
const DefaultEmailDomain = "unicamp.br"

// DomainSuffixPolicy accepts well-formed addresses whose host ends in the
// configured domain, subdomains included ("a@unicamp.br", "a@dac.unicamp.br").
type DomainSuffixPolicy struct {
	domain  string
	pattern *regexp.Regexp
}

// NewDomainSuffixPolicy builds a policy for the given institutional domain.
func NewDomainSuffixPolicy(domain string) (*DomainSuffixPolicy, error) {
	domain = strings.TrimSpace(strings.ToLower(domain))
	if domain == "" {
		return nil, errors.New("auth: email policy domain is required")
	}
	pattern, err := regexp.Compile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]*` + regexp.QuoteMeta(domain) + `$`)
	if err != nil {
		return nil, err
	}
	return &DomainSuffixPolicy{domain: domain, pattern: pattern}, nil
}

// Validate checks the request shape. The institutional e-mail domain policy
// is enforced separately by the service so it stays pluggable.
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Username, validation.Required, validation.Length(3, 100)),
		validation.Field(&in.Password, validation.Required, validation.Length(6, 200)),
		validation.Field(&in.Email, validation.Required, is.Email),
	)
}

// ValidateEmail returns ErrInvalidEmail unless the address is well formed and
// belongs to the institutional domain.
func (p *DomainSuffixPolicy) ValidateEmail(email string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return ErrInvalidEmail.WithDetail("the e-mail (%s) is not a well-formed address", email)
	}
	if !p.pattern.MatchString(email) {
		return ErrInvalidEmail.WithDetail(
			"the e-mail (%s) does not belong to the %s domain", email, p.domain,
		)
	}
	return nil
}
