package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shelfwise/internal/importer"
)

// ImportBooks takes a multipart upload in the "file" field. The format
// comes from the "format" field or the file extension.
func (s *Server) ImportBooks(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, importer.ErrMissingReader)
		return
	}

	var format importer.Format
	if raw := strings.TrimSpace(c.PostForm("format")); raw != "" {
		format, err = importer.ParseFormat(raw)
	} else {
		format, err = importer.FormatFromFilename(header.Filename)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	dryRun, err := parseOptionalBool(c.PostForm("dry_run"))
	if err != nil {
		AbortWithError(c, newValidationError("dry_run", "invalid_dry_run", "invalid dry_run"))
		return
	}

	file, err := header.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer file.Close()

	report, evts, err := s.importer.Import(c.Request.Context(), importer.Request{
		Format: format,
		Reader: file,
		DryRun: dryRun != nil && *dryRun,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.dispatch(c, evts)

	c.JSON(http.StatusOK, gin.H{"data": report})
}
