package chat

import (
	"math"
	"sort"
	"strings"
)

// Themes
const (
	ThemeSchool     = "school"
	ThemeExams      = "exams"
	ThemeFamily     = "family"
	ThemeFriends    = "friends"
	ThemeSleep      = "sleep"
	ThemeAnxiety    = "anxiety"
	ThemeSadness    = "sadness"
	ThemeLoneliness = "loneliness"
	ThemeAnger      = "anger"
)

const (
	farewellWeight   = 0.4
	gratitudeWeight  = 0.25
	resolutionWeight = 0.25
	lengthWeight     = 0.1
	longWeight       = 0.2

	lengthMinMessages = 6
	longMinMessages   = 10

	// only the latest student messages tell whether the student is wrapping up
	recentWindow = 2

	DefaultCompletionThreshold = 0.6
)

var (
	farewellPhrases = []string{
		"bye", "goodbye", "good night", "goodnight", "see you", "talk later", "talk to you later",
		"gotta go", "got to go", "have to go", "need to go", "i'm going to go", "i should go", "ttyl",
	}
	gratitudePhrases = []string{
		"thank you", "thanks", "thank u", "thx", "appreciate it", "appreciate you", "that helped", "this helped",
		"you helped",
	}
	resolutionPhrases = []string{
		"feel better", "feeling better", "i feel good", "i'm okay now", "im okay now", "i am okay now",
		"i'll try", "i will try", "makes sense", "that makes sense", "i know what to do", "good idea",
		"i'll do that", "i will do that", "sounds like a plan", "calmer now", "i'm fine now",
	}
	riskPhrases = []string{
		"kill myself", "killing myself", "suicide", "suicidal", "self harm", "self-harm", "selfharm",
		"hurt myself", "hurting myself", "cut myself", "cutting myself", "end my life", "end it all",
		"want to die", "wanna die", "don't want to live", "dont want to live", "no reason to live",
		"better off dead", "better off without me", "take my own life", "overdose",
	}
	themeKeywords = map[string][]string{
		ThemeSchool:     {"school", "class", "teacher", "teachers", "homework", "assignment", "assignments", "grades", "lesson", "project"},
		ThemeExams:      {"exam", "exams", "test", "tests", "quiz", "revision", "finals", "results", "studying"},
		ThemeFamily:     {"family", "mom", "mum", "dad", "mother", "father", "parents", "brother", "sister", "home"},
		ThemeFriends:    {"friend", "friends", "bully", "bullied", "classmate", "group chat", "left out"},
		ThemeSleep:      {"sleep", "tired", "insomnia", "awake", "nightmare", "exhausted", "can't sleep"},
		ThemeAnxiety:    {"anxious", "anxiety", "worried", "worry", "nervous", "panic", "stressed", "stress", "scared", "overwhelmed"},
		ThemeSadness:    {"sad", "cry", "crying", "depressed", "down", "hopeless", "unhappy", "miserable", "empty"},
		ThemeLoneliness: {"lonely", "alone", "isolated", "nobody", "no one", "no friends"},
		ThemeAnger:      {"angry", "mad", "furious", "annoyed", "hate", "frustrated", "rage"},
	}
)

// Analysis is what the Analyzer found in a conversation.
type Analysis struct {
	CompletionScore float64  `json:"completion_score"`
	IsComplete      bool     `json:"is_complete"`
	Themes          []string `json:"themes"`
	RiskDetected    bool     `json:"risk_detected"`
	StudentMessages int      `json:"student_messages"`
}

// Analyzer scores how close a conversation is to a natural end using keyword heuristics.
type Analyzer struct {
	threshold float64
}

func NewAnalyzer(threshold float64) *Analyzer {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultCompletionThreshold
	}
	return &Analyzer{threshold: threshold}
}

// Analyze scores a transcript (oldest first).
func (a *Analyzer) Analyze(messages []Message) Analysis {
	studentMsgs := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleStudent {
			studentMsgs = append(studentMsgs, normalize(m.Content))
		}
	}

	var recent []string
	if n := len(studentMsgs); n > recentWindow {
		recent = studentMsgs[n-recentWindow:]
	} else {
		recent = studentMsgs
	}

	var score float64
	if anyContains(recent, farewellPhrases) {
		score += farewellWeight
	}
	if anyContains(recent, gratitudePhrases) {
		score += gratitudeWeight
	}
	if anyContains(recent, resolutionPhrases) {
		score += resolutionWeight
	}
	switch n := len(studentMsgs); {
	case n >= longMinMessages:
		score += longWeight
	case n >= lengthMinMessages:
		score += lengthWeight
	}
	score = math.Min(1, math.Round(score*100)/100)

	return Analysis{
		CompletionScore: score,
		IsComplete:      score >= a.threshold,
		Themes:          DetectThemes(studentMsgs...),
		RiskDetected:    anyContains(studentMsgs, riskPhrases),
		StudentMessages: len(studentMsgs),
	}
}

// DetectRisk reports whether text contains crisis language.
func DetectRisk(text string) bool {
	return containsAnyWord(normalize(text), riskPhrases)
}

// DetectThemes returns the sorted themes mentioned in texts.
func DetectThemes(texts ...string) []string {
	themes := make([]string, 0)
	for theme, keywords := range themeKeywords {
		for _, text := range texts {
			if containsAnyWord(normalize(text), keywords) {
				themes = append(themes, theme)
				break
			}
		}
	}
	sort.Strings(themes)
	return themes
}

func normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.NewReplacer("’", "'", "‘", "'").Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

func anyContains(texts []string, phrases []string) bool {
	for _, text := range texts {
		if containsAnyWord(text, phrases) {
			return true
		}
	}
	return false
}

// containsAnyWord matches keywords on word boundaries, so "bye" does not match "maybe".
func containsAnyWord(text string, keywords []string) bool {
	padded := " " + strings.Map(func(r rune) rune {
		if r == '\'' || r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, text) + " "
	for _, kw := range keywords {
		if strings.Contains(padded, " "+kw+" ") {
			return true
		}
	}
	return false
}
