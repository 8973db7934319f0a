package inbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/realtime"
	"github.com/shinyyama/hoko/internal/service"
)

var (
	ErrThreadClosed = errors.New("chat thread is not open")
	ErrSending      = errors.New("a message is already being sent")
)

// Peer is the other side of a thread as shown in its header.
type Peer struct {
	User *model.User `json:"user"`
	// Role is "Seller" or "Buyer".
	Role       string   `json:"role"`
	OfferPrice *float64 `json:"offer_price,omitempty"`
}

// ThreadState is what the chat view renders.
type ThreadState struct {
	PostID   string          `json:"post_id"`
	Product  string          `json:"product"`
	Peer     Peer            `json:"peer"`
	Messages []model.Message `json:"messages"`
	Input    string          `json:"input"`
	Sending  bool            `json:"sending"`
	Error    string          `json:"error,omitempty"`
	CallLink string          `json:"call_link,omitempty"`
}

// Thread is one open chat between the viewer and a peer about a post.
type Thread struct {
	chat   service.ChatService
	broker *realtime.Broker
	scope  string

	mu       sync.Mutex
	me       *model.User
	post     *model.Post
	peer     Peer
	messages []model.Message
	input    string
	sending  bool
	errText  string
	sub      *realtime.Subscription
	onChange func()
}

func NewThread(chat service.ChatService, broker *realtime.Broker, scope string) *Thread {
	return &Thread{chat: chat, broker: broker, scope: scope}
}

// OnChange registers fn to run after a pushed message was merged.
func (t *Thread) OnChange(fn func()) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

func channelName(scope, postID, me, other string) string {
	return scoped(scope, fmt.Sprintf("chat-%s-%s-%s", postID, me, other))
}

// Open loads the history, subscribes to new messages of the pair and marks
// the thread read for the viewer. A previously open thread is closed first.
func (t *Thread) Open(ctx context.Context, me *model.User, post *model.Post, peer Peer) error {
	if me == nil || post == nil || peer.User == nil {
		return service.ErrCounterpartMissing
	}
	t.Close()

	history, err := t.chat.Thread(ctx, post.ID, me.ID, peer.User.ID)
	if err != nil {
		log.Printf("[inbox] stage=thread_load post=%s err=%v", post.ID, err)
		history = nil
	}

	t.mu.Lock()
	t.me = me
	t.post = post
	t.peer = peer
	t.messages = nil
	t.input = ""
	t.errText = ""
	for _, m := range history {
		t.mergeLocked(m)
	}
	t.mu.Unlock()

	if t.broker != nil {
		meID, otherID := me.ID, peer.User.ID
		sub := t.broker.Subscribe(channelName(t.scope, post.ID, meID, otherID), "messages", realtime.Eq("post_id", post.ID), func(ev realtime.Event) {
			m, ok := ev.Record.(*model.Message)
			if !ok || !m.Between(meID, otherID) {
				return
			}
			t.receive(*m)
		})
		t.mu.Lock()
		t.sub = sub
		t.mu.Unlock()
	}

	if err := t.chat.MarkThreadRead(ctx, post.ID, me.ID, peer.User.ID); err != nil {
		log.Printf("[inbox] stage=thread_mark_read post=%s err=%v", post.ID, err)
	}
	return nil
}

func (t *Thread) receive(m model.Message) {
	t.mu.Lock()
	added := t.mergeLocked(m)
	forMe := t.me != nil && m.ReceiverID == t.me.ID && !m.IsRead
	fn := t.onChange
	t.mu.Unlock()
	if !added {
		return
	}
	if forMe {
		if err := t.chat.MarkRead(context.Background(), m.ID); err != nil {
			log.Printf("[inbox] stage=message_mark_read message=%s err=%v", m.ID, err)
		}
	}
	if fn != nil {
		fn()
	}
}

// mergeLocked appends m unless a message with its id is already held.
func (t *Thread) mergeLocked(m model.Message) bool {
	for _, x := range t.messages {
		if x.ID == m.ID {
			return false
		}
	}
	t.messages = append(t.messages, m)
	return true
}

// SetInput keeps the composer text.
func (t *Thread) SetInput(s string) {
	t.mu.Lock()
	t.input = s
	t.mu.Unlock()
}

// Send clears the composer and inserts the message. The message itself
// shows up through the subscription; on failure the text is put back.
func (t *Thread) Send(ctx context.Context, text string) error {
	t.mu.Lock()
	if t.post == nil {
		t.mu.Unlock()
		return ErrThreadClosed
	}
	if t.sending {
		t.mu.Unlock()
		return ErrSending
	}
	if strings.TrimSpace(text) == "" {
		t.mu.Unlock()
		return service.ErrEmptyMessage
	}
	me, post, peerID := t.me, t.post, t.peer.User.ID
	t.sending = true
	t.input = ""
	t.errText = ""
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.sending = false
		t.mu.Unlock()
	}()

	if _, err := t.chat.Send(ctx, me, peerID, post, text); err != nil {
		t.mu.Lock()
		t.input = text
		t.errText = "Failed to send message. Please try again."
		t.mu.Unlock()
		return err
	}
	return nil
}

func (t *Thread) Messages() []model.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.Message(nil), t.messages...)
}

func (t *Thread) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.post != nil
}

func (t *Thread) State() *ThreadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.post == nil {
		return nil
	}
	return &ThreadState{
		PostID:   t.post.ID,
		Product:  t.post.ProductName,
		Peer:     t.peer,
		Messages: append([]model.Message(nil), t.messages...),
		Input:    t.input,
		Sending:  t.sending,
		Error:    t.errText,
		CallLink: service.CallLink(t.peer.User),
	}
}

// Close unsubscribes and forgets the thread.
func (t *Thread) Close() {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.post = nil
	t.me = nil
	t.peer = Peer{}
	t.messages = nil
	t.input = ""
	t.errText = ""
	t.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}
