package prompt

import (
	"github.com/manifoldco/promptui"
)

// Password prompts for a secret with masked input. Returns ErrAborted
// on Ctrl+C.
func Password(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}

	result, err := prompt.Run()
	return result, wrapError(err)
}
