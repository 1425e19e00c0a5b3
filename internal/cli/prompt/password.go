package prompt

import "github.com/manifoldco/promptui"

// Password prompts for masked input, for credentials not passed as flags.
func Password(label string) (string, error) {
	p := promptui.Prompt{Label: label, Mask: '*'}
	result, err := p.Run()
	return result, wrapError(err)
}
