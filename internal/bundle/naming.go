package bundle

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	maxBundleNameLen = 100
	maxFilenameLen   = 255
	fileExt          = ".yml"
	collisionLayout  = "20060102_150405"
)

var (
	bundleNamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	unsafeFilenameChar = regexp.MustCompile(`[<>:"/\\|?*]`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("bundlename", func(fl validator.FieldLevel) bool {
		return bundleNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateBundleName checks that name, once trimmed, is non-empty, at most
// 100 characters and made of letters, digits, underscores and hyphens.
func ValidateBundleName(name string) error {
	name = strings.TrimSpace(name)
	if err := validate.Var(name, fmt.Sprintf("required,max=%d,bundlename", maxBundleNameLen)); err != nil {
		return fmt.Errorf("invalid bundle name %q: %w", name, err)
	}
	return nil
}

// BundleName derives the bundle name for one workflow of a batch. A single
// workflow keeps the prefix; several get "<prefix>_<sanitized name>".
func BundleName(prefix, workflowName string, batchSize int) string {
	if batchSize <= 1 {
		return prefix
	}
	return prefix + "_" + SanitizeFilename(JobKey(workflowName))
}

// FileName is the artifact file name for a bundle.
func FileName(bundleName string) string {
	return SanitizeFilename(bundleName + fileExt)
}

// SanitizeFilename replaces characters unsafe in file names, trims spaces and
// dots, and caps the length at 255 while keeping the extension.
func SanitizeFilename(name string) string {
	name = unsafeFilenameChar.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	if len(name) > maxFilenameLen {
		ext := path.Ext(name)
		if len(ext) >= maxFilenameLen {
			ext = ""
		}
		name = truncateUTF8(name[:len(name)-len(ext)], maxFilenameLen-len(ext)) + ext
	}
	if name == "" {
		return "untitled"
	}
	return name
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// WorkspacePath substitutes {user} in base, joins elems and ensures the
// result lives under /Workspace.
func WorkspacePath(base, user string, elems ...string) string {
	p := strings.ReplaceAll(base, "{user}", user)
	if len(elems) > 0 {
		p = path.Join(append([]string{p}, elems...)...)
	}
	if !strings.HasPrefix(p, "/Workspace") {
		p = "/Workspace" + p
	}
	return p
}

// UniqueDestinationName returns folder/base, or, when that path already
// exists, the same name with a _YYYYMMDD_HHMMSS suffix before the extension.
// The suffixed name is not re-checked. If exists fails the original path is
// returned.
func UniqueDestinationName(exists func(string) (bool, error), folder, base string, now time.Time) string {
	target := path.Join(folder, base)
	found, err := exists(target)
	if err != nil || !found {
		return target
	}
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return path.Join(folder, stem+"_"+now.Format(collisionLayout)+ext)
}
