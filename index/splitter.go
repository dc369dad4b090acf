package index

import "strings"

// softBreakRunes are positions the splitter prefers to cut at when one falls
// inside the tail of the current window.
const softBreakRunes = "。！？；\n.!?;"

// SplitText cuts text into overlapping windows of at most target runes,
// stepping target-overlap runes each time. The cut point slides back to the
// nearest sentence boundary within the final quarter of the window when one
// exists. Empty or whitespace-only input yields no chunks.
func SplitText(text string, target, overlap int) []string {
	if target <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= target {
		overlap = 0
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	chunks := make([]string, 0, len(runes)/target+1)
	step := target - overlap

	for start := 0; start < len(runes); start += step {
		end := start + target
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := end
		for i := end - 1; i > start+(target*3)/4; i-- {
			if strings.ContainsRune(softBreakRunes, runes[i]) {
				cut = i + 1
				break
			}
		}

		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		step = cut - start - overlap
		if step <= 0 {
			step = 1
		}
	}

	return chunks
}
