package checkpoint

import (
	"fmt"
	"os"
	"strings"
)

const analysisPromptTemplate = `Analyze the following checkpoint and identify reusable work patterns that could become skills.

A "skill" is a repeatable workflow pattern that can be triggered by specific phrases and executed consistently.

## Checkpoint Content

%s

## Analysis Instructions

1. **Identify Patterns**: Look for regularities in:
   - Sequences of commits that form a logical workflow
   - File change patterns (e.g., test + implementation together)
   - CLI consultation patterns (design → implementation → review)
   - Multi-step operations that could be templated

2. **For each potential skill, provide**:
   - **Name**: Short, descriptive name (e.g., "tdd-feature", "research-implement")
   - **Description**: What this skill accomplishes
   - **Trigger phrases**: When should this skill be invoked (Japanese + English)
   - **Workflow steps**: Ordered list of actions
   - **Files typically involved**: Patterns like ` + "`tests/**/*.go`, `internal/**/*.go`" + `
   - **Confidence**: How confident are you this is a reusable pattern (0.0-1.0)
   - **Evidence**: What in the checkpoint suggests this pattern

3. **Output format**:

` + "```markdown" + `
## Skill Suggestions

### Skill 1: {name}
**Confidence:** {0.0-1.0}
**Description:** {description}

**Trigger phrases:**
- "{Japanese phrase}"
- "{English phrase}"

**Workflow:**
1. {step 1}
2. {step 2}
3. {step 3}

**Files involved:**
- ` + "`{pattern 1}`" + `
- ` + "`{pattern 2}`" + `

**Evidence:**
- {evidence from checkpoint}
` + "```" + `

4. **Quality criteria**:
   - Only suggest skills with confidence >= 0.6
   - Skip trivial patterns (single file edits, simple commits)
   - Focus on multi-step workflows that save time when repeated
   - Consider what would be valuable to automate in future sessions

Provide your analysis:`

// AnalysisPrompt wraps checkpoint content in the skill-analysis prompt.
func AnalysisPrompt(checkpointContent string) string {
	return fmt.Sprintf(analysisPromptTemplate, checkpointContent)
}

// WriteAnalysisPrompt reads a checkpoint document and writes the analysis
// prompt next to it as <checkpoint>.analyze-prompt.md.
func WriteAnalysisPrompt(checkpointPath string) (string, error) {
	content, err := os.ReadFile(checkpointPath)
	if err != nil {
		return "", fmt.Errorf("read checkpoint: %w", err)
	}

	promptPath := strings.TrimSuffix(checkpointPath, ".md") + ".analyze-prompt.md"
	prompt := AnalysisPrompt(string(content))
	if err := os.WriteFile(promptPath, []byte(prompt), 0o600); err != nil {
		return "", fmt.Errorf("write analysis prompt: %w", err)
	}
	return promptPath, nil
}
