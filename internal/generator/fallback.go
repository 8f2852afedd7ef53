package generator

import "github.com/proctorly/proctorly-backend/internal/model"

// FallbackQuestions returns a copy of the static bank for a section. Served
// when the generation collaborator is unavailable; the copy keeps callers
// from mutating the bank through the returned slice.
func FallbackQuestions(section model.Section) []model.Question {
	bank := fallbackBank[section]
	out := make([]model.Question, len(bank))
	copy(out, bank)
	return out
}

var fallbackBank = map[model.Section][]model.Question{
	model.SectionMCQ1: {
		mcq("Which data structure offers O(1) average lookup by key?",
			"Hash map", "Binary search tree", "Linked list", "Sorted array", "Hash map"),
		mcq("What is the time complexity of binary search on a sorted array?",
			"O(log n)", "O(n)", "O(n log n)", "O(1)", "O(log n)"),
		mcq("Which sorting algorithm is stable?",
			"Merge sort", "Quick sort", "Heap sort", "Selection sort", "Merge sort"),
		mcq("A stack processes elements in which order?",
			"Last in, first out", "First in, first out", "Random order", "Priority order", "Last in, first out"),
		mcq("Which traversal visits a binary tree's root between its subtrees?",
			"In-order", "Pre-order", "Post-order", "Level-order", "In-order"),
	},
	model.SectionMCQ2: {
		mcq("Which HTTP status code indicates a resource was not found?",
			"404", "200", "301", "500", "404"),
		mcq("What does ACID stand for in database transactions?",
			"Atomicity, Consistency, Isolation, Durability",
			"Availability, Consistency, Integrity, Durability",
			"Atomicity, Concurrency, Isolation, Distribution",
			"Access, Control, Identity, Data",
			"Atomicity, Consistency, Isolation, Durability"),
		mcq("Which protocol underlies HTTPS encryption?",
			"TLS", "SSH", "FTP", "SMTP", "TLS"),
		mcq("What does an index on a database column primarily improve?",
			"Read query speed", "Write throughput", "Storage usage", "Backup time", "Read query speed"),
		mcq("Which process translates a domain name into an IP address?",
			"DNS resolution", "ARP lookup", "NAT traversal", "BGP routing", "DNS resolution"),
	},
	model.SectionMCQ3: {
		mcq("Which design pattern provides a single shared instance?",
			"Singleton", "Factory", "Observer", "Decorator", "Singleton"),
		mcq("What does idempotency mean for an API operation?",
			"Repeating it yields the same result", "It requires authentication",
			"It always succeeds", "It runs asynchronously",
			"Repeating it yields the same result"),
		mcq("Which consistency model do most distributed caches favor?",
			"Eventual consistency", "Strict serializability", "Linearizability", "Causal+ consistency",
			"Eventual consistency"),
	},
	model.SectionCoding: {
		{
			Type:  model.QuestionTypeCoding,
			Title: "Reverse a string without using built-in reverse helpers.",
			TestCases: []model.TestCase{
				{Input: "hello", Expected: "olleh"},
				{Input: "ab", Expected: "ba"},
			},
			Constraints: []string{"1 <= len(s) <= 10^5", "ASCII input only"},
		},
		{
			Type:  model.QuestionTypeCoding,
			Title: "Return the indices of two numbers in an array that sum to a target.",
			TestCases: []model.TestCase{
				{Input: "[2,7,11,15], 9", Expected: "[0,1]"},
				{Input: "[3,2,4], 6", Expected: "[1,2]"},
			},
			Constraints: []string{"2 <= len(nums) <= 10^4", "exactly one solution exists"},
		},
	},
}

func mcq(title, a, b, c, d, correct string) model.Question {
	return model.Question{
		Type:          model.QuestionTypeMCQ,
		Title:         title,
		Options:       []string{a, b, c, d},
		CorrectAnswer: correct,
	}
}
