package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ah-its-andy/tengine/internal/db"
	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/transform"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	fieldFile           = "file"
	fieldSourceMimetype = "sourceMimetype"
	fieldTargetMimetype = "targetMimetype"
)

// StatusCode maps a transform error to the HTTP status returned to clients.
func StatusCode(err error) int {
	switch transform.KindOf(err) {
	case transform.KindValidation, transform.KindLookup, transform.KindToolFailure:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// transform handles POST /transform. The multipart form carries the file,
// sourceMimetype, targetMimetype, an optional transformName and options as
// any other field.
func (s *Server) transform(c *gin.Context) {
	start := time.Now()
	entry := &db.TransformLog{RequestID: uuid.NewString(), Origin: "http", CreatedAt: start}
	defer s.record(entry, start)

	fh, err := c.FormFile(fieldFile)
	if err != nil {
		s.fail(c, entry, http.StatusBadRequest, "Required request part 'file' is not present")
		return
	}
	entry.SourceMimetype = c.PostForm(fieldSourceMimetype)
	entry.TargetMimetype = c.PostForm(fieldTargetMimetype)
	entry.SourceSize = fh.Size
	if entry.SourceMimetype == "" || entry.TargetMimetype == "" {
		s.fail(c, entry, http.StatusBadRequest, "sourceMimetype and targetMimetype are required")
		return
	}

	options := formOptions(c)
	entry.Options = db.FormatOptions(options)

	workdir, err := os.MkdirTemp(s.tempDir, "tengine-")
	if err != nil {
		s.fail(c, entry, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.RemoveAll(workdir)

	source := filepath.Join(workdir, "source"+filepath.Ext(fh.Filename))
	if err := c.SaveUploadedFile(fh, source); err != nil {
		s.fail(c, entry, http.StatusInternalServerError, err.Error())
		return
	}
	ext := transform.TargetExtension(entry.TargetMimetype)
	if entry.TargetMimetype == transform.MimetypeMetadataEmbed {
		ext = filepath.Ext(fh.Filename)
	}
	target := filepath.Join(workdir, "target"+ext)

	req := transform.Request{
		TransformName:  c.PostForm(transform.OptTransformName),
		SourceFile:     source,
		TargetFile:     target,
		SourceMimetype: entry.SourceMimetype,
		TargetMimetype: entry.TargetMimetype,
		Options:        options,
	}
	res, err := s.engine.Transform(c.Request.Context(), req)
	entry.Transformer = res.Transformer
	if err != nil {
		s.fail(c, entry, StatusCode(err), err.Error())
		return
	}

	fi, err := os.Stat(target)
	if err != nil || fi.Size() == 0 {
		s.fail(c, entry, http.StatusInternalServerError, "Transformer failed to create an output file")
		return
	}
	entry.TargetSize = fi.Size()
	entry.Status = db.StatusSuccess
	entry.StatusCode = http.StatusOK
	c.FileAttachment(target, "transform"+ext)
}

// formOptions collects every non-empty form field other than the reserved ones.
func formOptions(c *gin.Context) map[string]string {
	options := map[string]string{}
	form := c.Request.MultipartForm
	if form == nil {
		return options
	}
	for k, vs := range form.Value {
		switch k {
		case fieldSourceMimetype, fieldTargetMimetype, transform.OptTransformName:
			continue
		}
		if len(vs) > 0 && strings.TrimSpace(vs[0]) != "" {
			options[k] = vs[0]
		}
	}
	return options
}

func (s *Server) fail(c *gin.Context, entry *db.TransformLog, status int, message string) {
	entry.Status = db.StatusFailed
	entry.StatusCode = status
	entry.ErrorMessage = message
	c.JSON(status, gin.H{"status": status, "message": message, "path": c.Request.URL.Path})
}

func (s *Server) record(entry *db.TransformLog, start time.Time) {
	entry.DurationMs = time.Since(start).Milliseconds()
	if s.db == nil {
		return
	}
	if err := s.db.InsertTransformLog(entry); err != nil {
		logging.Named("http").Warn("failed to record transform", "request_id", entry.RequestID, "error", err)
	}
}
