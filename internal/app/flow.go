package app

import (
	"context"
	"errors"
	"log"

	"github.com/shinyyama/hoko/internal/login"
	"github.com/shinyyama/hoko/internal/requirement"
	"github.com/shinyyama/hoko/internal/service"
)

var ErrNoLogin = errors.New("no login in progress")

// SubmitNeed takes the free-text requirement and opens the details form.
// A configured suggester may pre-fill the category.
func (a *App) SubmitNeed(ctx context.Context, text string) error {
	a.mu.Lock()
	if err := a.capture.SubmitNeed(text); err != nil {
		a.mu.Unlock()
		return err
	}
	a.screen = ScreenProductDetails
	a.detailsErr = nil
	a.attachErr = ""
	a.mu.Unlock()

	if a.deps.Suggester == nil {
		return nil
	}
	d := a.store.Draft()
	if d.Category != "" {
		return nil
	}
	category, err := a.deps.Suggester.Suggest(ctx, d.ProductName)
	if err != nil {
		log.Printf("[app] stage=suggest_category err=%v", err)
		return nil
	}
	d = a.store.Draft()
	if d.Category == "" {
		d.Category = category
		a.store.SetDraft(d)
	}
	return nil
}

// StartListening begins speech capture on top of typed text.
func (a *App) StartListening(current string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.capture.Speech.Start(current)
}

func (a *App) StopListening() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.capture.Speech.Stop()
}

// ApplySpeech folds recognition results into the need text.
func (a *App) ApplySpeech(segments []requirement.Segment) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	text, _ := a.capture.Speech.Apply(segments)
	return text
}

// AddAttachments validates a file selection; rejections are kept as one
// message for the form.
func (a *App) AddAttachments(files []requirement.File) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attachErr = a.capture.Attachments.Add(files)
	return a.attachErr
}

func (a *App) CaptureAttachment(f requirement.File) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attachErr = a.capture.Attachments.Capture(f)
	return a.attachErr
}

func (a *App) RemoveAttachment(i int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attachErr = ""
	return a.capture.Attachments.Remove(i)
}

// SubmitDetails completes the capture. A signed-in user publishes right
// away; anyone else is sent to log in and publishes afterwards.
func (a *App) SubmitDetails(ctx context.Context, in requirement.Details) error {
	a.mu.Lock()
	if _, err := a.capture.SubmitDetails(in); err != nil {
		var fe requirement.FieldErrors
		if errors.As(err, &fe) {
			a.detailsErr = fe
		}
		a.mu.Unlock()
		return err
	}
	a.detailsErr = nil
	if a.pending.phase == PostCreated {
		a.pending.reset()
	}
	a.mu.Unlock()

	if a.store.SignedIn() {
		a.mu.Lock()
		a.screen = ScreenDashboard
		a.mu.Unlock()
		return a.publish(ctx)
	}
	a.beginLogin(ScreenLogin, false)
	return nil
}

// RetryPost publishes the kept draft again after a failed attempt.
func (a *App) RetryPost(ctx context.Context) error {
	if a.store.Draft().ProductName == "" {
		return service.ErrEmptyProduct
	}
	return a.publish(ctx)
}

// publish uploads the pending files and inserts the post. It runs at most
// once per submitted draft.
func (a *App) publish(ctx context.Context) error {
	u := a.store.User()
	city := a.store.City()
	d := a.store.Draft()
	if u == nil || city == nil {
		return login.ErrMissingCity
	}
	if d.ProductName == "" {
		return service.ErrEmptyProduct
	}

	a.mu.Lock()
	if err := a.pending.begin(); err != nil {
		a.mu.Unlock()
		return err
	}
	files := a.capture.Attachments.Files()
	a.mu.Unlock()

	_, err := a.deps.Posts.Create(ctx, service.NewPost{
		UserID: u.ID,
		CityID: city.ID,
		Draft:  d,
		Files:  files,
	})

	a.mu.Lock()
	a.pending.finish(err)
	if err == nil {
		a.postSuccess = &PostSuccess{CityName: city.Name}
		a.capture.Reset()
	}
	a.mu.Unlock()
	if err != nil {
		log.Printf("[app] stage=publish user=%s err=%v", u.ID, err)
		return err
	}
	a.reloadPosts(ctx)
	a.reloadMine(ctx)
	return nil
}

// ClosePostSuccess hides the popup.
func (a *App) ClosePostSuccess() {
	a.mu.Lock()
	a.postSuccess = nil
	a.mu.Unlock()
	a.store.ResetDraft()
}

// Back leaves the current pre-dashboard screen.
func (a *App) Back() {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.screen {
	case ScreenProductDetails:
		a.screen = ScreenWelcome
	case ScreenLogin:
		if a.login != nil && a.login.Step() == login.StepCodeSent {
			a.login.Back()
			return
		}
		a.login = nil
		a.screen = ScreenProductDetails
	case ScreenSellerLogin, ScreenBuyerLogin:
		if a.login != nil && a.login.Step() == login.StepCodeSent {
			a.login.Back()
			return
		}
		a.login = nil
		a.screen = ScreenWelcome
	}
}

// RegisterSeller opens the seller sign up.
func (a *App) RegisterSeller() {
	a.beginLogin(ScreenSellerLogin, true)
}

// LoginAsBuyer goes straight to the dashboard for a signed-in user.
func (a *App) LoginAsBuyer(ctx context.Context) {
	if a.store.SignedIn() {
		a.enterDashboard(ctx)
		return
	}
	a.beginLogin(ScreenBuyerLogin, false)
}

func (a *App) beginLogin(screen Screen, seller bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.screen = screen
	a.loginFrom = screen
	a.login = login.New(a.deps.Login, a.store, seller)
}

func (a *App) loginFlow() (*login.Flow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.login == nil {
		return nil, ErrNoLogin
	}
	return a.login, nil
}

func (a *App) RequestCode(ctx context.Context, phone string) error {
	f, err := a.loginFlow()
	if err != nil {
		return err
	}
	return f.RequestCode(ctx, phone)
}

func (a *App) ResendCode(ctx context.Context) error {
	f, err := a.loginFlow()
	if err != nil {
		return err
	}
	return f.Resend(ctx)
}

func (a *App) VerifyCode(ctx context.Context, code string) error {
	f, err := a.loginFlow()
	if err != nil {
		return err
	}
	return f.Verify(ctx, code)
}

func (a *App) CompleteBuyer(ctx context.Context, cityID string) error {
	f, err := a.loginFlow()
	if err != nil {
		return err
	}
	if _, err := f.CompleteBuyer(ctx, cityID); err != nil {
		return err
	}
	return a.loginSucceeded(ctx)
}

func (a *App) CompleteSeller(ctx context.Context, p login.SellerProfile) error {
	f, err := a.loginFlow()
	if err != nil {
		return err
	}
	if _, err := f.CompleteSeller(ctx, p); err != nil {
		return err
	}
	return a.loginSucceeded(ctx)
}

// loginSucceeded lands on the dashboard. Logging in from the requirement
// path publishes the waiting draft.
func (a *App) loginSucceeded(ctx context.Context) error {
	a.mu.Lock()
	from := a.loginFrom
	token := ""
	if a.login != nil {
		token = a.login.Token()
	}
	a.dash.token = token
	a.mu.Unlock()

	a.enterDashboard(ctx)
	if from == ScreenLogin && a.store.Draft().ProductName != "" {
		a.mu.Lock()
		if a.pending.phase == PostCreated {
			a.pending.reset()
		}
		a.mu.Unlock()
		return a.publish(ctx)
	}
	return nil
}

// NewPost clears the draft and returns to the welcome screen.
func (a *App) NewPost() {
	a.startOver()
}

// SwitchToBuyer does the same as NewPost from the seller side.
func (a *App) SwitchToBuyer() {
	a.startOver()
}

func (a *App) startOver() {
	a.thread.Close()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.capture.Reset()
	a.pending.reset()
	a.detailsErr = nil
	a.attachErr = ""
	a.postSuccess = nil
	a.screen = ScreenWelcome
}

// Logout forgets the user, city, draft and every live subscription.
func (a *App) Logout() {
	a.thread.Close()
	a.feed.Clear()
	a.store.Logout()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.capture.Attachments.Reset()
	a.capture.Speech.Stop()
	a.pending.reset()
	a.login = nil
	a.postSuccess = nil
	a.toasts = nil
	a.pulseUntil = a.deps.Now().Add(-BadgePulse)
	a.dash = newDashboard()
	a.screen = ScreenWelcome
	a.tab = TabDashboard
}
