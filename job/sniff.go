package job

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"pixscale/logger"
)

// expected MIME types per source file type; types not listed are not checked
var sourceMIME = map[string]string{
	"svg": "image/svg+xml",
	"pdf": "application/pdf",
	"eps": "application/postscript",
}

// SniffSources reports source files whose content does not look like the
// declared file type. It only warns; every file still gets its jobs.
func SniffSources(inputRoot, fileType string, files []string) []string {
	want, ok := sourceMIME[strings.ToLower(fileType)]
	if !ok {
		return nil
	}

	var suspicious []string
	for _, f := range files {
		path := filepath.Join(inputRoot, f)
		mt, err := mimetype.DetectFile(path)
		if err != nil {
			logger.Warnf("Could not read %s: %v", f, err)
			suspicious = append(suspicious, f)
			continue
		}
		if !mt.Is(want) {
			logger.Warnf("%s does not look like %s (detected %s)", f, fileType, mt.String())
			suspicious = append(suspicious, f)
		}
	}
	return suspicious
}
