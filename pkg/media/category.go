package media

import "strings"

// Category groups file names for display purposes.
type Category string

const (
	CategoryFile  Category = "file"
	CategoryImage Category = "image"
	CategoryOther Category = "other"
)

var categoryExtensions = []struct {
	category   Category
	extensions []string
}{
	{CategoryFile, []string{"pdf", "doc", "docx", "txt", "xls", "xlsx"}},
	{CategoryImage, []string{"jpg", "jpeg", "png", "gif", "webp"}},
}

// CategoryOf classifies name by its suffix.
func CategoryOf(name string) Category {
	lower := strings.ToLower(name)
	for _, group := range categoryExtensions {
		for _, ext := range group.extensions {
			if strings.HasSuffix(lower, ext) {
				return group.category
			}
		}
	}
	return CategoryOther
}
