package util

import (
	"errors"

	"github.com/manifoldco/promptui"
)

// Confirm asks message as a yes or no question on the terminal. Anything
// other than yes is a no.
func Confirm(message string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     message,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
