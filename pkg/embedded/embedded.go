package embedded

import (
	_ "embed"
)

// Embed the suggestion prompt files
//
//go:embed data/prompts/system_prompt.txt
var SystemPromptTxt []byte

//go:embed data/prompts/few_shot_examples.txt
var FewShotExamplesTxt []byte
