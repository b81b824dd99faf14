// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes notely tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/noteservice"
	"github.com/starford/notely/internal/summary"
)

const noteFormatURI = "notely://note-format"

// Server wraps the MCP server with notely tools. Every tool acts as user.
type Server struct {
	mcp        *server.MCPServer
	svc        *noteservice.Service
	summarizer *summary.Requestor
	user       models.User
}

// New creates a new MCP server with all notely tools registered.
func New(svc *noteservice.Service, summarizer *summary.Requestor, user models.User) *Server {
	s := &Server{svc: svc, summarizer: summarizer, user: user}

	s.mcp = server.NewMCPServer(
		"Notely",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes in storage order."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by (case-insensitive)")),
		mcp.WithString("favorite", mcp.Description(`Set to "true" to list favorites only`)),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive search through note titles, content and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with all of its fields."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. Read the notely://note-format resource "+
			"for the field rules first."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note body")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Partially update a note. Omitted fields keep their value."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New body")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags; empty clears them")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note. Deleting an unknown id succeeds."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("toggle_favorite",
		mcp.WithDescription("Flip a note's favorite flag."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.toggleFavorite)

	s.mcp.AddTool(mcp.NewTool("summarize_note",
		mcp.WithDescription("Summarize a note's content."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("save", mcp.Description(`Set to "true" to store the summary on the note`)),
	), s.summarizeNote)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List tags with the number of notes carrying each."),
	), s.listTags)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format Contract",
			mcp.WithResourceDescription("Fields and rules that all notes follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		notes []models.Note
		err   error
	)
	if tag := optionalString(req, "tag"); tag != "" {
		notes, err = s.svc.ListByTag(ctx, s.user.ID, tag)
	} else {
		notes, err = s.svc.ListByOwner(ctx, s.user.ID)
	}
	if err != nil {
		return toolError(err), nil
	}
	if fav, _ := strconv.ParseBool(optionalString(req, "favorite")); fav {
		kept := notes[:0]
		for _, n := range notes {
			if n.IsFavorite {
				kept = append(kept, n)
			}
		}
		notes = kept
	}
	return jsonResult(notes), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.svc.Search(ctx, s.user.ID, query)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(notes), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.ownedNote(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(n), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	n, err := s.svc.Create(ctx, s.user.ID, models.NoteInput{
		Title:   title,
		Content: content,
		Tags:    splitTags(optionalString(req, "tags")),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(n), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.ownedNote(ctx, id); err != nil {
		return toolError(err), nil
	}

	var patch models.NotePatch
	if v, err := req.RequireString("title"); err == nil {
		patch.Title = &v
	}
	if v, err := req.RequireString("content"); err == nil {
		patch.Content = &v
	}
	if v, err := req.RequireString("tags"); err == nil {
		tags := splitTags(v)
		patch.Tags = &tags
	}

	n, err := s.svc.Update(ctx, id, patch)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(n), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, err = s.ownedNote(ctx, id)
	switch {
	case err == nil:
		if err := s.svc.Delete(ctx, id); err != nil {
			return toolError(err), nil
		}
	case !errors.Is(err, apperr.ErrNotFound):
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) toggleFavorite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.ownedNote(ctx, id); err != nil {
		return toolError(err), nil
	}
	n, err := s.svc.ToggleFavorite(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(n), nil
}

func (s *Server) summarizeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.ownedNote(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	res, err := s.summarizer.Summarize(ctx, n.Content)
	if err != nil {
		return toolError(err), nil
	}
	if save, _ := strconv.ParseBool(optionalString(req, "save")); save {
		if _, err := s.svc.AttachSummary(ctx, id, res.Summary); err != nil {
			return toolError(err), nil
		}
	}
	return jsonResult(res), nil
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.Tags(ctx, s.user.ID)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(tags), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

// ownedNote hides notes of other owners behind ErrNotFound.
func (s *Server) ownedNote(ctx context.Context, id string) (*models.Note, error) {
	n, ok, err := s.svc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok || n.OwnerID != s.user.ID {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, id)
	}
	return n, nil
}

func optionalString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func splitTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
