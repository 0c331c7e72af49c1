package domain

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// NoteStatus enumerates the lifecycle states of a note.
type NoteStatus string

// Canonical note statuses; stored by name.
const (
	NoteOpen   NoteStatus = "OPEN"
	NoteClosed NoteStatus = "CLOSED"
)

// ParseNoteStatus validates a stored status name.
func ParseNoteStatus(raw string) (NoteStatus, error) {
	switch s := NoteStatus(raw); s {
	case NoteOpen, NoteClosed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown note status %q", raw)
	}
}

// CommentAction describes what a note comment did to its note.
type CommentAction string

// Comment actions as reported by the notes API.
const (
	ActionOpened    CommentAction = "OPENED"
	ActionCommented CommentAction = "COMMENTED"
	ActionClosed    CommentAction = "CLOSED"
	ActionReopened  CommentAction = "REOPENED"
	ActionHidden    CommentAction = "HIDDEN"
)

// ParseCommentAction validates a stored action name.
func ParseCommentAction(raw string) (CommentAction, error) {
	switch a := CommentAction(raw); a {
	case ActionOpened, ActionCommented, ActionClosed, ActionReopened, ActionHidden:
		return a, nil
	default:
		return "", fmt.Errorf("unknown comment action %q", raw)
	}
}

// User is a value copy of the contributor who wrote a comment.
type User struct {
	ID          int64
	DisplayName string
}

// NoteComment is one entry of a note's discussion thread.
// Text and User are nil when absent; User is nil for anonymous contributors.
type NoteComment struct {
	Action CommentAction
	Date   time.Time
	Text   *string
	User   *User
}

// Note is a user-created point annotation with a thread of comments.
// Comments are owned by the note and keep their insertion order.
type Note struct {
	ID          int64
	Position    orb.Point
	Status      NoteStatus
	DateCreated time.Time
	DateClosed  *time.Time
	Comments    []NoteComment
}

// Close marks the note closed at the given time and records the closing comment.
func (n *Note) Close(at time.Time, by *User, text *string) {
	n.Status = NoteClosed
	closed := at
	n.DateClosed = &closed
	n.Comments = append(n.Comments, NoteComment{Action: ActionClosed, Date: at, Text: text, User: by})
}

// Reopen marks the note open again. DateClosed keeps the last closing time;
// callers that want it cleared must do so explicitly.
func (n *Note) Reopen(at time.Time, by *User, text *string) {
	n.Status = NoteOpen
	n.Comments = append(n.Comments, NoteComment{Action: ActionReopened, Date: at, Text: text, User: by})
}

// AddComment appends a plain comment to the thread.
func (n *Note) AddComment(at time.Time, by *User, text string) {
	n.Comments = append(n.Comments, NoteComment{Action: ActionCommented, Date: at, Text: &text, User: by})
}
