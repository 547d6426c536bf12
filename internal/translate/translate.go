// Package translate resolves multi-locale fetch payloads into one display record.
package translate

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"launchalert/internal/domain"
)

// FallbackLanguage is used when requested language has no candidate.
const FallbackLanguage = "en"

// Translate resolves raw alert into record for one language.
// Params: raw payload data and requested language tag.
// Returns: resolved record; nil when raw is nil.
func Translate(raw *domain.RawAlert, languageTag string) *domain.AlertRecord {
	if raw == nil {
		return nil
	}
	record := &domain.AlertRecord{
		Version:              Resolve(raw.Version, languageTag),
		Title:                Resolve(raw.Title, languageTag),
		Description:          Resolve(raw.Description, languageTag),
		IconURL:              raw.Icon,
		ActionURL:            raw.Link,
		Force:                raw.Force,
		PrimaryButtonLabel:   Resolve(raw.ButtonTitle, languageTag),
		SecondaryButtonLabel: Resolve(raw.CancelButtonTitle, languageTag),
		MinVersion:           raw.MinimumVersion,
		MaxVersion:           raw.MaximumVersion,
		CreatedAt:            raw.CreatedAt,
	}
	if raw.ID != nil {
		record.ID = strings.TrimSpace(*raw.ID)
	}
	if raw.SDKVersion != nil {
		sdk := strconv.FormatInt(*raw.SDKVersion, 10)
		record.SDKVersion = &sdk
	}
	return record
}

// Resolve picks content for requested tag, then "en", then nil.
// Params: candidate list (order irrelevant, first occurrence per tag wins) and tag.
// Returns: content pointer or nil.
func Resolve(field domain.LocalizedField, languageTag string) *string {
	if len(field) == 0 {
		return nil
	}
	requested := strings.TrimSpace(languageTag)
	if requested == "" {
		requested = FallbackLanguage
	}
	if content := pick(field, requested); content != nil {
		return content
	}
	if strings.EqualFold(requested, FallbackLanguage) {
		return nil
	}
	return pick(field, FallbackLanguage)
}

// pick scans candidates for the canonical form of requested tag.
// Params: candidates and requested tag.
// Returns: first matching content or nil.
func pick(field domain.LocalizedField, requested string) *string {
	want, ok := canonical(requested)
	if !ok {
		return nil
	}
	for _, candidate := range field {
		if candidate.Language == nil || candidate.Content == nil {
			continue
		}
		if tag, ok := canonical(*candidate.Language); ok && tag == want {
			return candidate.Content
		}
	}
	return nil
}

// canonical normalizes language tag ("EN_us" -> "en-US").
// Params: raw tag text.
// Returns: canonical tag and parse success.
func canonical(raw string) (string, bool) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")
	if trimmed == "" {
		return "", false
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return strings.ToLower(trimmed), true
	}
	return tag.String(), true
}
