package app

import "errors"

// PostPhase is the lifecycle of the requirement waiting to be published.
type PostPhase string

const (
	PostIdle     PostPhase = "idle"
	PostCreating PostPhase = "creating"
	PostCreated  PostPhase = "created"
)

var ErrPostInProgress = errors.New("post is already being created")

// pendingPost guards publication so a re-run trigger cannot insert twice.
// Its transitions happen under App.mu.
type pendingPost struct {
	phase   PostPhase
	lastErr string
}

// begin moves idle to creating. Any other phase refuses.
func (p *pendingPost) begin() error {
	if p.phase != PostIdle {
		return ErrPostInProgress
	}
	p.phase = PostCreating
	p.lastErr = ""
	return nil
}

// finish ends a creating run. A failure returns to idle so the user may
// retry with the draft intact.
func (p *pendingPost) finish(err error) {
	if err != nil {
		p.phase = PostIdle
		p.lastErr = "Failed to create post. Please try again."
		return
	}
	p.phase = PostCreated
}

func (p *pendingPost) reset() {
	p.phase = PostIdle
	p.lastErr = ""
}
