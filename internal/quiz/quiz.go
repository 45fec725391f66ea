package quiz

import (
	"math/rand"
	"strings"

	"github.com/example/reviewbot/pkg/models"
)

// Kind represents different types of questions
type Kind string

const (
	// MultipleChoice asks to pick the answer among options
	MultipleChoice Kind = "multiple_choice"
	// TextInput asks the user to type the word
	TextInput Kind = "text_input"
	// SelfCheck lets the user grade themselves; used when there is nothing to mix in
	SelfCheck Kind = "self_check"
)

// DefaultOptions is the number of options of a multiple choice question
const DefaultOptions = 4

// Blank replaces the word in a context sentence
const Blank = "_______"

// Question represents a single review question
type Question struct {
	Word            models.WordRecord // The word being reviewed
	Kind            Kind
	Prompt          string   // Word or meaning, depending on the direction
	Options         []string // Possible answers (for multiple choice)
	CorrectIndex    int      // Index of correct answer in options; 0 for self check
	ContextSentence string   // Sentence with blank (for text input)
}

// Answer is the expected answer
func (q Question) Answer() string {
	if q.Word.Direction == models.DirectionRecognizeMeaning || q.Word.Direction == "" {
		return q.Word.Meaning
	}
	return q.Word.Word
}

// CheckChoice reports whether the chosen option is right. Any negative index
// means "don't know".
func (q Question) CheckChoice(idx int) bool {
	return idx >= 0 && idx == q.CorrectIndex
}

// CheckText compares a typed answer ignoring case and surrounding spaces
func (q Question) CheckText(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.Answer()))
}

// Builder creates questions for review sessions
type Builder struct {
	rnd     *rand.Rand
	options int
}

// NewBuilder creates a builder; the seed makes option order reproducible
func NewBuilder(seed int64) *Builder {
	return &Builder{
		rnd:     rand.New(rand.NewSource(seed)),
		options: DefaultOptions,
	}
}

// Build creates the question for rec. Distractors come from pool, words of
// the same partition first.
func (b *Builder) Build(rec models.WordRecord, pool []models.WordRecord) Question {
	q := Question{Word: rec}

	var field func(models.WordRecord) string
	switch rec.Direction {
	case models.DirectionDictation:
		q.Kind = TextInput
		q.Prompt = rec.Meaning
		if rec.Context != "" {
			q.ContextSentence = replaceWordWithBlank(rec.Context, rec.Word)
		}
		return q
	case models.DirectionRecallWord:
		q.Prompt = rec.Meaning
		field = func(w models.WordRecord) string { return w.Word }
	default:
		q.Prompt = rec.Word
		field = func(w models.WordRecord) string { return w.Meaning }
	}

	options := b.incorrectOptions(rec, pool, b.options-1, field)
	if len(options) == 0 {
		q.Kind = SelfCheck
		return q
	}

	// Add correct option and shuffle
	options = append(options, field(rec))
	correctIndex := len(options) - 1
	b.rnd.Shuffle(len(options), func(i, j int) {
		if i == correctIndex {
			correctIndex = j
		} else if j == correctIndex {
			correctIndex = i
		}
		options[i], options[j] = options[j], options[i]
	})

	q.Kind = MultipleChoice
	q.Options = options
	q.CorrectIndex = correctIndex
	return q
}

// incorrectOptions picks up to count distinct wrong answers
func (b *Builder) incorrectOptions(rec models.WordRecord, pool []models.WordRecord, count int, field func(models.WordRecord) string) []string {
	var same, other []string
	for _, w := range pool {
		if w.ID == rec.ID {
			continue
		}
		if w.Partition == rec.Partition {
			same = append(same, field(w))
		} else {
			other = append(other, field(w))
		}
	}
	b.rnd.Shuffle(len(same), func(i, j int) { same[i], same[j] = same[j], same[i] })
	b.rnd.Shuffle(len(other), func(i, j int) { other[i], other[j] = other[j], other[i] })

	seen := map[string]bool{strings.ToLower(strings.TrimSpace(field(rec))): true}
	options := make([]string, 0, count)
	for _, candidate := range append(same, other...) {
		if len(options) == count {
			break
		}
		key := strings.ToLower(strings.TrimSpace(candidate))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		options = append(options, candidate)
	}
	return options
}

// replaceWordWithBlank replaces the first occurrence of word, ignoring ASCII
// case, with a blank. The blank is appended if the word is missing.
func replaceWordWithBlank(sentence, word string) string {
	if word == "" {
		return sentence
	}
	for i := 0; i <= len(sentence)-len(word); i++ {
		if lowerMatchAt(sentence, word, i) {
			return sentence[:i] + Blank + sentence[i+len(word):]
		}
	}
	return sentence + " " + Blank
}

// lowerMatchAt checks if strings match at position, ignoring case
func lowerMatchAt(s, substr string, pos int) bool {
	if pos+len(substr) > len(s) {
		return false
	}
	for i := 0; i < len(substr); i++ {
		if toLowerCase(s[pos+i]) != toLowerCase(substr[i]) {
			return false
		}
	}
	return true
}

// toLowerCase converts a byte to lowercase
func toLowerCase(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
