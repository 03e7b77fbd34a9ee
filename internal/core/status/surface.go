package status

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"timetracker/internal/core/model"
)

// NeutralColor is the icon color shown while no timer runs.
const NeutralColor = "#808080"

// NeutralIcon is shown while Idle.
var NeutralIcon = IconSpec{Color: NeutralColor}

// IconSpec describes the tray icon: a colored dot with an optional initial.
type IconSpec struct {
	Color  string
	Letter string
}

// ProjectIcon derives the icon of a running project.
func ProjectIcon(name, color string) IconSpec {
	return IconSpec{Color: color, Letter: Initial(name)}
}

// Initial returns the upper-cased first letter of name, or "" for a blank name.
func Initial(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	first, _ := utf8.DecodeRuneInString(trimmed)
	return string(unicode.ToUpper(first))
}

// MenuModel is the project menu of the status surface.
type MenuModel struct {
	Projects        []model.ProjectSummary
	StopEnabled     bool
	ActiveProjectID model.ProjectID
}

// Equal reports whether both menus render the same.
func (menu MenuModel) Equal(other MenuModel) bool {
	return menu.StopEnabled == other.StopEnabled &&
		menu.ActiveProjectID == other.ActiveProjectID &&
		slices.Equal(menu.Projects, other.Projects)
}

// Surface is an out-of-process status indicator such as a tray icon.
type Surface interface {
	SetIcon(icon IconSpec)
	SetLabel(label string)
	SetMenu(menu MenuModel)
}

// FormatLabel renders elapsed time as h:mm.
func FormatLabel(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	totalMinutes := int64(elapsed / time.Minute)
	return fmt.Sprintf("%d:%02d", totalMinutes/60, totalMinutes%60)
}
