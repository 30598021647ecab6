package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/youruser/moodmap/internal/board"
	imagepkg "github.com/youruser/moodmap/internal/image"
	"github.com/youruser/moodmap/internal/layout"
	"github.com/youruser/moodmap/internal/style"
)

var errTooLarge = errors.New("upload too large")

// Handlers serve the board and export endpoints.
type Handlers struct {
	Store      *board.Store
	Compositor *imagepkg.Compositor
	Log        *slog.Logger
	MaxUpload  int64
}

// health
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type slotView struct {
	ID     string `json:"id"`
	Filled bool   `json:"filled"`
	MIME   string `json:"mime,omitempty"`
}

type boardView struct {
	ID     string        `json:"id"`
	Theme  board.Theme   `json:"theme"`
	Style  style.Params  `json:"style"`
	Layout layout.Params `json:"layout"`
	Rows   int           `json:"rows"`
	Slots  []slotView    `json:"slots"`
}

func viewOf(b *board.Board) boardView {
	s := b.Snapshot()
	v := boardView{
		ID:     s.ID,
		Theme:  s.Theme,
		Style:  s.Style,
		Layout: s.Layout,
		Rows:   layout.Rows(len(s.Slots)),
		Slots:  make([]slotView, len(s.Slots)),
	}
	for i, sl := range s.Slots {
		v.Slots[i] = slotView{ID: sl.ID, Filled: sl.Source != nil}
		if bs, ok := sl.Source.(*imagepkg.BytesSource); ok {
			v.Slots[i].MIME = bs.MIME
		}
	}
	return v
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, board.ErrBoardNotFound), errors.Is(err, board.ErrSlotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, board.ErrLastSlot):
		status = http.StatusConflict
	case errors.Is(err, board.ErrNotImage):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, errTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, board.ErrInvalidColor), errors.Is(err, board.ErrInvalidTheme):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handlers) board(c *gin.Context) (*board.Board, bool) {
	b, err := h.Store.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return b, true
}

func (h *Handlers) createBoard(c *gin.Context) {
	b := h.Store.Create()
	c.JSON(http.StatusCreated, viewOf(b))
}

func (h *Handlers) getBoard(c *gin.Context) {
	if b, ok := h.board(c); ok {
		c.JSON(http.StatusOK, viewOf(b))
	}
}

func (h *Handlers) deleteBoard(c *gin.Context) {
	if err := h.Store.Delete(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) addSlot(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	b.AddSlot()
	c.JSON(http.StatusCreated, viewOf(b))
}

func (h *Handlers) removeSlot(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	if err := b.RemoveSlot(c.Param("slot")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(b))
}

func (h *Handlers) removeLastSlot(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	if err := b.RemoveLastSlot(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(b))
}

func (h *Handlers) putImage(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := h.readUpload(fh)
	if err == nil {
		err = b.AssignImage(c.Param("slot"), data)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(b))
}

func (h *Handlers) deleteImage(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	if err := b.ClearImage(c.Param("slot")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(b))
}

// addImages fills empty slots with a batch of uploads; non-images are
// skipped and reported, the rest are still placed.
func (h *Handlers) addImages(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var batch [][]byte
	for _, fh := range form.File["files"] {
		data, err := h.readUpload(fh)
		if err != nil {
			writeError(c, fmt.Errorf("%s: %w", fh.Filename, err))
			return
		}
		batch = append(batch, data)
	}
	placed, err := b.AddImages(batch)
	resp := gin.H{"placed": placed, "board": viewOf(b)}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) resetBoard(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	b.Reset()
	c.JSON(http.StatusOK, viewOf(b))
}

type patchRequest struct {
	Title      *string `json:"title"`
	Background *string `json:"background"`
	TitleColor *string `json:"title_color"`
	Theme      *string `json:"theme"`
	CellSize   *int    `json:"cell_size"`
	Gap        *int    `json:"gap"`
}

// patchBoard applies every valid field. An invalid colour keeps its prior
// value and turns the response into a 422 carrying the updated board.
func (h *Handlers) patchBoard(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var errs []error
	if req.Theme != nil {
		if err := b.SetTheme(board.Theme(*req.Theme)); err != nil {
			errs = append(errs, err)
		}
	}
	if req.Title != nil {
		b.SetTitle(*req.Title)
	}
	if req.CellSize != nil {
		b.SetCellSize(*req.CellSize)
	}
	if req.Gap != nil {
		b.SetGap(*req.Gap)
	}
	if req.Background != nil {
		if err := b.SetBackground(*req.Background); err != nil {
			errs = append(errs, fmt.Errorf("background: %w", err))
		}
	}
	if req.TitleColor != nil {
		if err := b.SetTitleColor(*req.TitleColor); err != nil {
			errs = append(errs, fmt.Errorf("title_color: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "board": viewOf(b)})
		return
	}
	c.JSON(http.StatusOK, viewOf(b))
}

func (h *Handlers) exportBoard(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	art, err := board.Export(c.Request.Context(), h.Compositor, b)
	h.sendArtifact(c, art, err)
}

// exportOnce composes a grid from a single multipart request without
// creating a board. Files are named slot_<index>; the optional "slots"
// field sets the minimum slot count (default 9).
func (h *Handlers) exportOnce(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lp := layout.Default()
	for field, dst := range map[string]*int{"cell_size": &lp.CellSize, "gap": &lp.Gap} {
		v := c.PostForm(field)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": field + " must be an integer"})
			return
		}
		*dst = n
	}

	limit := imagepkg.MaxSlots(lp)
	count := board.DefaultSlots
	if v := c.PostForm("slots"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "slots must be a positive integer"})
			return
		}
		if n > limit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("slots exceeds %d for this layout", limit)})
			return
		}
		count = n
	}

	files := map[int]*multipart.FileHeader{}
	for key, fhs := range form.File {
		idx, ok := strings.CutPrefix(key, "slot_")
		i, err := strconv.Atoi(idx)
		if !ok || err != nil || i < 0 || len(fhs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unexpected file field %q", key)})
			return
		}
		if i >= limit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s exceeds %d slots for this layout", key, limit)})
			return
		}
		files[i] = fhs[0]
		count = max(count, i+1)
	}

	slots := make([]imagepkg.Slot, count)
	indexes := make([]int, 0, len(files))
	for i := range files {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for i := range slots {
		slots[i].ID = strconv.Itoa(i)
	}
	for _, i := range indexes {
		data, err := h.readUpload(files[i])
		var src *imagepkg.BytesSource
		if err == nil {
			src, err = imagepkg.NewBytesSource(data)
		}
		if err != nil {
			writeError(c, fmt.Errorf("slot_%d: %w", i, err))
			return
		}
		slots[i].Source = src
	}

	sp := style.Default()
	sp.Title = c.PostForm("title")
	for field, dst := range map[string]*string{"background": &sp.Background, "title_color": &sp.TitleColor} {
		v := c.PostForm(field)
		if v == "" {
			continue
		}
		n, err := style.NormalizeColor(v)
		if err != nil {
			writeError(c, fmt.Errorf("%s: %w", field, err))
			return
		}
		*dst = n
	}

	art, err := h.Compositor.Compose(c.Request.Context(), slots, lp.Clamped(), sp)
	h.sendArtifact(c, art, err)
}

func (h *Handlers) sendArtifact(c *gin.Context, art *imagepkg.Artifact, err error) {
	if err != nil {
		var ce *imagepkg.CompositionError
		if errors.As(err, &ce) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed: " + ce.Kind.String()})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.FileName}))
	c.Header("X-Moodmap-Failed-Slots", strconv.Itoa(art.FailedSlots))
	c.Data(http.StatusOK, art.ContentType, art.Data)
}

func (h *Handlers) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if h.MaxUpload > 0 && fh.Size > h.MaxUpload {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", errTooLarge, fh.Size, h.MaxUpload)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
