package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/1broseidon/deskmod/internal/lifecycle"
)

// moduleItem implements list.Item for the module picker.
type moduleItem struct {
	info lifecycle.ModuleInfo
}

func (i moduleItem) Title() string {
	prefix := "  "
	if i.info.Enabled {
		prefix = "● "
	}
	return prefix + i.info.Name
}

func (i moduleItem) Description() string {
	pos := "unplaced"
	if i.info.HasPosition {
		pos = fmt.Sprintf("at %d,%d", i.info.X, i.info.Y)
	}
	return fmt.Sprintf("%s/%s  %dx%d  %s", i.info.Addon, i.info.Key, i.info.Width, i.info.Height, pos)
}

func (i moduleItem) FilterValue() string { return i.info.Addon + " " + i.info.Name }

func buildItems(modules []lifecycle.ModuleInfo) []list.Item {
	items := make([]list.Item, 0, len(modules))
	for _, m := range modules {
		items = append(items, moduleItem{info: m})
	}
	return items
}
