package notedao

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"

	"mapstore/internal/codec"
	"mapstore/pkg/domain"
)

// Record is the codec shape of a whole note, used where a note travels as one
// blob (the archive). Rows only store Comments in the blob column.
type Record struct {
	ID       int64     `cbor:"id" json:"id"`
	Lat      float64   `cbor:"lat" json:"lat"`
	Lon      float64   `cbor:"lon" json:"lon"`
	Status   string    `cbor:"status" json:"status"`
	Created  int64     `cbor:"created" json:"created"`
	Closed   *int64    `cbor:"closed,omitempty" json:"closed,omitempty"`
	Comments []Comment `cbor:"comments" json:"comments"`
}

// Comment is the codec shape of one note comment.
type Comment struct {
	Action string  `cbor:"action" json:"action"`
	Date   int64   `cbor:"date" json:"date"`
	Text   *string `cbor:"text,omitempty" json:"text,omitempty"`
	User   *User   `cbor:"user,omitempty" json:"user,omitempty"`
}

// User is the codec shape of a comment author.
type User struct {
	ID   int64  `cbor:"id" json:"id"`
	Name string `cbor:"name" json:"name"`
}

// noteData is the blob part of a note row: everything not needed for queries.
type noteData struct {
	Comments []Comment `cbor:"comments" json:"comments"`
}

// NewRecord converts n to its codec shape.
func NewRecord(n domain.Note) Record {
	r := Record{
		ID:       n.ID,
		Lat:      n.Position.Lat(),
		Lon:      n.Position.Lon(),
		Status:   string(n.Status),
		Created:  toMillis(n.DateCreated),
		Comments: commentsToWire(n.Comments),
	}
	if n.DateClosed != nil {
		ms := toMillis(*n.DateClosed)
		r.Closed = &ms
	}
	return r
}

// Note converts r back, validating status and comment actions.
func (r Record) Note() (domain.Note, error) {
	status, err := domain.ParseNoteStatus(r.Status)
	if err != nil {
		return domain.Note{}, err
	}
	comments, err := commentsFromWire(r.Comments)
	if err != nil {
		return domain.Note{}, err
	}
	n := domain.Note{
		ID:          r.ID,
		Position:    orb.Point{r.Lon, r.Lat},
		Status:      status,
		DateCreated: fromMillis(r.Created),
		Comments:    comments,
	}
	if r.Closed != nil {
		t := fromMillis(*r.Closed)
		n.DateClosed = &t
	}
	return n, nil
}

func commentsToWire(comments []domain.NoteComment) []Comment {
	out := make([]Comment, len(comments))
	for i, cm := range comments {
		cd := Comment{Action: string(cm.Action), Date: toMillis(cm.Date)}
		if cm.Text != nil {
			text := *cm.Text
			cd.Text = &text
		}
		if cm.User != nil {
			cd.User = &User{ID: cm.User.ID, Name: cm.User.DisplayName}
		}
		out[i] = cd
	}
	return out
}

func commentsFromWire(comments []Comment) ([]domain.NoteComment, error) {
	if len(comments) == 0 {
		return nil, nil
	}
	out := make([]domain.NoteComment, len(comments))
	for i, cd := range comments {
		action, err := domain.ParseCommentAction(cd.Action)
		if err != nil {
			return nil, fmt.Errorf("comment %d: %w", i, err)
		}
		cm := domain.NoteComment{Action: action, Date: fromMillis(cd.Date), Text: cd.Text}
		if cd.User != nil {
			cm.User = &domain.User{ID: cd.User.ID, DisplayName: cd.User.Name}
		}
		out[i] = cm
	}
	return out, nil
}

func encodeComments(c codec.Codec, comments []domain.NoteComment) ([]byte, error) {
	return c.Marshal(noteData{Comments: commentsToWire(comments)})
}

func decodeComments(c codec.Codec, b []byte) ([]domain.NoteComment, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty data")
	}
	var data noteData
	if err := c.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	return commentsFromWire(data.Comments)
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
