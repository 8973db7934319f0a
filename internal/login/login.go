// Package login drives the one-time-code sign in: phone, code, then the
// buyer city or seller profile step.
package login

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shinyyama/hoko/internal/authn"
	"github.com/shinyyama/hoko/internal/catalog"
	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/otp"
	"github.com/shinyyama/hoko/internal/repository"
	"github.com/shinyyama/hoko/internal/session"
	"github.com/shinyyama/hoko/internal/task"
)

type Step string

const (
	StepPhone         Step = "phone"
	StepCodeSent      Step = "code-sent"
	StepBuyerCity     Step = "buyer-city"
	StepSellerProfile Step = "seller-profile"
	StepComplete      Step = "complete"
)

const (
	ResendCooldown = 60 * time.Second
	DefaultCodeTTL = 5 * time.Minute
)

var (
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrInvalidCode     = errors.New("invalid code format")
	ErrCodeExpired     = errors.New("code expired")
	ErrCodeMismatch    = errors.New("code mismatch")
	ErrCooldown        = errors.New("resend cooling down")
	ErrWrongStep       = errors.New("action not allowed at this step")
	ErrBusy            = errors.New("request already in flight")
	ErrMissingCity     = errors.New("city is required")
	ErrMissingProfile  = errors.New("firm and manager name are required")
	ErrMissingCategory = errors.New("business category is required")
)

// Message is the user-facing text for err. Unknown errors are service
// failures and get a generic line.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPhone):
		return "Please enter a valid 10-digit mobile number"
	case errors.Is(err, ErrInvalidCode):
		return "Please enter the complete 6-digit OTP"
	case errors.Is(err, ErrCodeExpired):
		return "OTP has expired. Please request a new one."
	case errors.Is(err, ErrCodeMismatch):
		return "Invalid OTP. Please try again."
	case errors.Is(err, ErrCooldown):
		return "Please wait before requesting a new OTP"
	case errors.Is(err, ErrMissingCity):
		return "Please select your city"
	case errors.Is(err, ErrMissingProfile):
		return "Please enter firm name and manager name"
	case errors.Is(err, ErrMissingCategory):
		return "Please select a business category"
	case errors.Is(err, ErrBusy):
		return "Please wait..."
	}
	return "Something went wrong. Please try again."
}

// NormalizePhone keeps the digits of in and drops a leading 91 country code.
func NormalizePhone(in string) (string, error) {
	var b strings.Builder
	for _, r := range in {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	}
	if len(digits) != 10 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

func ValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type Deps struct {
	Sender otp.Sender
	// Codes is consulted only when the sender kept the code to itself.
	Codes  repository.OTPRepository
	Users  repository.UserRepository
	Issuer authn.Issuer
	Tasks  *task.Runner
	Now    func() time.Time
}

// SellerProfile is the registration form shown to sellers.
type SellerProfile struct {
	FirmName    string `json:"firm_name"`
	ManagerName string `json:"manager_name"`
	Category    string `json:"category"`
	CityID      string `json:"city_id"`
}

// State is what the login screen renders.
type State struct {
	Step            Step           `json:"step"`
	Seller          bool           `json:"seller"`
	Phone           string         `json:"phone,omitempty"`
	CooldownSeconds int            `json:"cooldown_seconds"`
	Submitting      bool           `json:"submitting"`
	Error           string         `json:"error,omitempty"`
	DemoCode        string         `json:"demo_code,omitempty"`
	Profile         *SellerProfile `json:"profile,omitempty"`
}

type Flow struct {
	deps   Deps
	store  *session.Store
	seller bool

	mu          sync.Mutex
	step        Step
	phone       string
	localCode   string
	localExpiry time.Time
	sentAt      time.Time
	inFlight    bool
	lastErr     error
	existing    *model.User
	token       string
}

func New(deps Deps, store *session.Store, seller bool) *Flow {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Tasks == nil {
		deps.Tasks = task.NewRunner()
	}
	return &Flow{deps: deps, store: store, seller: seller, step: StepPhone}
}

func (f *Flow) Seller() bool {
	return f.seller
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Token is the session token minted on completion, if an issuer is set.
func (f *Flow) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := State{
		Step:            f.step,
		Seller:          f.seller,
		Phone:           f.phone,
		CooldownSeconds: f.cooldownLocked(),
		Submitting:      f.inFlight,
		Error:           Message(f.lastErr),
	}
	if f.step == StepCodeSent {
		st.DemoCode = f.localCode
	}
	if f.step == StepSellerProfile && f.existing != nil {
		st.Profile = &SellerProfile{
			FirmName:    f.existing.FirmName,
			ManagerName: f.existing.ManagerName,
			Category:    f.existing.BusinessCategory,
			CityID:      f.existing.CityID,
		}
	}
	return st
}

// CooldownRemaining is the whole seconds left before a resend is allowed.
func (f *Flow) CooldownRemaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cooldownLocked()
}

func (f *Flow) cooldownLocked() int {
	if f.sentAt.IsZero() {
		return 0
	}
	left := f.sentAt.Add(ResendCooldown).Sub(f.deps.Now())
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// begin marks a request in flight; the returned func must be deferred.
func (f *Flow) begin(allowed ...Step) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return nil, ErrBusy
	}
	ok := false
	for _, s := range allowed {
		if f.step == s {
			ok = true
		}
	}
	if !ok {
		return nil, ErrWrongStep
	}
	f.inFlight = true
	return func() {
		f.mu.Lock()
		f.inFlight = false
		f.mu.Unlock()
	}, nil
}

func (f *Flow) fail(err error) error {
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()
	return err
}

// RequestCode validates the phone and asks for a code. On success the flow
// moves to code-sent and the resend cooldown starts.
func (f *Flow) RequestCode(ctx context.Context, rawPhone string) error {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return f.fail(err)
	}
	done, err := f.begin(StepPhone)
	if err != nil {
		return err
	}
	defer done()
	return f.send(ctx, phone)
}

// Resend issues a new code for the same phone once the cooldown has passed.
func (f *Flow) Resend(ctx context.Context) error {
	if f.CooldownRemaining() > 0 {
		return f.fail(ErrCooldown)
	}
	done, err := f.begin(StepCodeSent)
	if err != nil {
		return err
	}
	defer done()
	f.mu.Lock()
	phone := f.phone
	f.mu.Unlock()
	return f.send(ctx, phone)
}

func (f *Flow) send(ctx context.Context, phone string) error {
	res, err := f.deps.Sender.Send(ctx, phone)
	if err != nil {
		log.Printf("[login] stage=send_otp phone=%s err=%v", maskPhone(phone), err)
		return f.fail(err)
	}
	now := f.deps.Now()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phone = phone
	f.step = StepCodeSent
	f.sentAt = now
	f.lastErr = nil
	f.localCode = ""
	f.localExpiry = time.Time{}
	if res != nil && res.DemoCode != "" {
		f.localCode = res.DemoCode
		f.localExpiry = now.Add(DefaultCodeTTL)
		if res.ExpiresAt != nil {
			f.localExpiry = *res.ExpiresAt
		}
	}
	return nil
}

// Back returns from code entry to phone entry.
func (f *Flow) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step == StepCodeSent {
		f.step = StepPhone
		f.lastErr = nil
	}
}

// Verify checks code against the locally held code when there is one,
// otherwise against the backend's pending codes. Exactly one of the two
// decides.
func (f *Flow) Verify(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if !ValidCode(code) {
		return f.fail(ErrInvalidCode)
	}
	done, err := f.begin(StepCodeSent)
	if err != nil {
		return err
	}
	defer done()

	f.mu.Lock()
	phone, local, expiry := f.phone, f.localCode, f.localExpiry
	f.mu.Unlock()
	now := f.deps.Now()

	if local != "" {
		if now.After(expiry) {
			return f.fail(ErrCodeExpired)
		}
		if code != local {
			return f.fail(ErrCodeMismatch)
		}
	} else {
		if f.deps.Codes == nil {
			return f.fail(ErrCodeMismatch)
		}
		row, err := f.deps.Codes.FindPending(ctx, phone, code, now)
		if err != nil {
			log.Printf("[login] stage=verify_lookup phone=%s err=%v", maskPhone(phone), err)
			return f.fail(err)
		}
		if row == nil {
			return f.fail(ErrCodeMismatch)
		}
		id := row.ID
		f.deps.Tasks.Go("otp_mark_verified", func(ctx context.Context) error {
			return f.deps.Codes.MarkVerified(ctx, id)
		})
	}

	existing, err := f.deps.Users.FindByMobile(ctx, phone)
	if err != nil {
		log.Printf("[login] stage=lookup_user phone=%s err=%v", maskPhone(phone), err)
		existing = nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.existing = existing
	f.lastErr = nil
	if f.seller {
		f.step = StepSellerProfile
	} else {
		f.step = StepBuyerCity
	}
	return nil
}

// CompleteBuyer records the buyer's city and signs them in.
func (f *Flow) CompleteBuyer(ctx context.Context, cityID string) (*model.User, error) {
	city, err := f.store.CityByID(cityID)
	if err != nil {
		return nil, f.fail(ErrMissingCity)
	}
	done, err := f.begin(StepBuyerCity)
	if err != nil {
		return nil, err
	}
	defer done()

	return f.save(ctx, city, func(u *model.User) {
		u.IsBuyer = true
	})
}

// CompleteSeller registers the seller profile and signs them in.
func (f *Flow) CompleteSeller(ctx context.Context, p SellerProfile) (*model.User, error) {
	p.FirmName = strings.TrimSpace(p.FirmName)
	p.ManagerName = strings.TrimSpace(p.ManagerName)
	if p.FirmName == "" || p.ManagerName == "" {
		return nil, f.fail(ErrMissingProfile)
	}
	if !catalog.IsCategory(p.Category) {
		return nil, f.fail(ErrMissingCategory)
	}
	city, err := f.store.CityByID(p.CityID)
	if err != nil {
		return nil, f.fail(ErrMissingCity)
	}
	done, err := f.begin(StepSellerProfile)
	if err != nil {
		return nil, err
	}
	defer done()

	return f.save(ctx, city, func(u *model.User) {
		u.IsSeller = true
		u.FirmName = p.FirmName
		u.ManagerName = p.ManagerName
		u.BusinessCategory = p.Category
	})
}

func (f *Flow) save(ctx context.Context, city *model.City, apply func(u *model.User)) (*model.User, error) {
	f.mu.Lock()
	phone := f.phone
	f.mu.Unlock()

	u, err := f.deps.Users.FindByMobile(ctx, phone)
	if err != nil {
		log.Printf("[login] stage=find_user phone=%s err=%v", maskPhone(phone), err)
		return nil, f.fail(err)
	}
	if u == nil {
		u = &model.User{Mobile: phone, CityID: city.ID}
		apply(u)
		err = f.deps.Users.Create(ctx, u)
	} else {
		u.CityID = city.ID
		apply(u)
		err = f.deps.Users.Update(ctx, u)
	}
	if err != nil {
		log.Printf("[login] stage=save_user phone=%s err=%v", maskPhone(phone), err)
		return nil, f.fail(err)
	}
	u.City = city

	if err := f.store.SetUser(u); err != nil {
		return nil, f.fail(err)
	}
	f.store.SetCity(city)

	var token string
	if f.deps.Issuer != nil {
		token, err = f.deps.Issuer.Issue(ctx, u.ID, authn.RoleClaims(u.IsBuyer, u.IsSeller, u.CityID))
		if err != nil {
			log.Printf("[login] stage=issue_token user=%s err=%v", u.ID, err)
			token = ""
		}
	}

	f.mu.Lock()
	f.step = StepComplete
	f.lastErr = nil
	f.token = token
	f.mu.Unlock()
	return u, nil
}

func maskPhone(p string) string {
	if len(p) < 4 {
		return "****"
	}
	return "******" + p[len(p)-4:]
}
