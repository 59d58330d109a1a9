package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/notekeeper/notes-platform/internal/core/domain"
	"github.com/notekeeper/notes-platform/internal/core/ports"
)

// NoteHandler serves the owner-scoped notes endpoints. Every route must be
// registered behind the Auth middleware.
type NoteHandler struct {
	service ports.NoteService
}

func NewNoteHandler(service ports.NoteService) *NoteHandler {
	return &NoteHandler{service: service}
}

// Add handles POST /add-note.
//
// @Summary      Add a note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      addNoteRequest  true  "Note"
// @Success      201   {object}  noteResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /add-note [post]
func (h *NoteHandler) Add(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	var req addNoteRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	note, err := h.service.Add(c.Request().Context(), id, ports.AddNoteInput{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, noteResponse{Note: note})
}

// List handles GET /get-all-notes.
//
// @Summary      List notes
// @Description  Pinned notes first, then newest first.
// @Tags         notes
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  notesResponse
// @Failure      401  {object}  errorResponse
// @Router       /get-all-notes [get]
func (h *NoteHandler) List(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	notes, err := h.service.List(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notesResponse{Notes: notes})
}

// Edit handles PUT /edit-note/:id.
//
// @Summary      Edit a note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Note ID"
// @Param        body  body      editNoteRequest  true  "Fields to change"
// @Success      200   {object}  noteResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /edit-note/{id} [put]
func (h *NoteHandler) Edit(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	var req editNoteRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}

	note, err := h.service.Edit(c.Request().Context(), id, c.Param("id"), domain.NotePatch{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		IsPinned: req.IsPinned,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, noteResponse{Note: note})
}

// UpdatePinned handles PUT /update-note-pinned/:id.
//
// @Summary      Pin or unpin a note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Note ID"
// @Param        body  body      updatePinnedRequest  true  "Pinned flag"
// @Success      200   {object}  noteResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /update-note-pinned/{id} [put]
func (h *NoteHandler) UpdatePinned(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	var req updatePinnedRequest
	if err := c.Bind(&req); err != nil {
		return invalidPayload(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	note, err := h.service.Edit(c.Request().Context(), id, c.Param("id"), domain.NotePatch{IsPinned: req.IsPinned})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, noteResponse{Note: note})
}

// Delete handles DELETE /delete-note/:id.
//
// @Summary      Delete a note
// @Tags         notes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Note ID"
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /delete-note/{id} [delete]
func (h *NoteHandler) Delete(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), id, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "note deleted"})
}
