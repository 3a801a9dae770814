package dialog

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ncruces/zenity"
)

const title = "Adjust Screen Brightness"

// Zenity shows the dialogs with native list boxes.
type Zenity struct{}

func translate(err error) error {
	switch {
	case errors.Is(err, zenity.ErrCanceled):
		return ErrCanceled
	case errors.Is(err, zenity.ErrExtraButton):
		return ErrRefresh
	}
	return err
}

func (Zenity) ChooseDisplay(displays []string, selected string) (string, error) {
	display, err := zenity.List("Select a display", displays,
		zenity.Title(title),
		zenity.DefaultItems(selected),
		zenity.DisallowEmpty(),
		zenity.OKLabel("Select"),
		zenity.CancelLabel("Close"),
		zenity.ExtraButton("Refresh"),
	)
	if err != nil {
		return "", translate(err)
	}
	return display, nil
}

func (Zenity) ChooseLevel(display string, levels []int, current int) (int, error) {
	items := make([]string, len(levels))
	for i, l := range levels {
		items[i] = strconv.Itoa(l)
	}

	choice, err := zenity.List(fmt.Sprintf("Brightness of %s", display), items,
		zenity.Title(title),
		zenity.DefaultItems(strconv.Itoa(current)),
		zenity.DisallowEmpty(),
		zenity.OKLabel("Apply"),
		zenity.CancelLabel("Reset"),
	)
	if err != nil {
		return 0, translate(err)
	}
	return strconv.Atoi(choice)
}

func (Zenity) Error(err error) {
	_ = zenity.Error(err.Error(), zenity.Title(title))
}
