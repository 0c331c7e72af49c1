package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mapstore/internal/notedao"
	"mapstore/pkg/domain"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Inspect stored notes",
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored note ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ids, err := app.NoteIDs(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var noteGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Print a note as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		note, found, err := app.GetNote(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("note %d: %w", id, domain.ErrNotFound)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(toNoteView(note))
	},
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := app.DeleteNote(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Note deleted: %d\n", id)
		return nil
	},
}

type noteView struct {
	ID          int64         `json:"id"`
	Lat         float64       `json:"lat"`
	Lon         float64       `json:"lon"`
	Status      string        `json:"status"`
	DateCreated time.Time     `json:"dateCreated"`
	DateClosed  *time.Time    `json:"dateClosed,omitempty"`
	Comments    []commentView `json:"comments"`
}

type commentView struct {
	Action string        `json:"action"`
	Date   time.Time     `json:"date"`
	Text   *string       `json:"text,omitempty"`
	User   *notedao.User `json:"user,omitempty"`
}

func toNoteView(n domain.Note) noteView {
	v := noteView{
		ID:          n.ID,
		Lat:         n.Position.Lat(),
		Lon:         n.Position.Lon(),
		Status:      string(n.Status),
		DateCreated: n.DateCreated,
		DateClosed:  n.DateClosed,
		Comments:    make([]commentView, 0, len(n.Comments)),
	}
	for _, c := range n.Comments {
		cv := commentView{Action: string(c.Action), Date: c.Date, Text: c.Text}
		if c.User != nil {
			cv.User = &notedao.User{ID: c.User.ID, Name: c.User.DisplayName}
		}
		v.Comments = append(v.Comments, cv)
	}
	return v
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", raw, err)
	}
	return id, nil
}

func init() {
	noteCmd.AddCommand(noteListCmd, noteGetCmd, noteDeleteCmd)
	rootCmd.AddCommand(noteCmd)
}
