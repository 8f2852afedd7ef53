package config

import "fmt"

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CurrentExamIDKey returns the scalar key holding the active exam id for a
// candidate profile.
func (r *CacheKeyStruct) CurrentExamIDKey(candidateID string) string {
	return fmt.Sprintf("candidate:%s:current_exam", candidateID)
}

// SessionBlobKey returns the key holding the serialized exam session blob.
func (r *CacheKeyStruct) SessionBlobKey(examID string) string {
	return fmt.Sprintf("exam:%s:session", examID)
}

// TerminatedKey returns the key holding the session-scoped terminated flag.
func (r *CacheKeyStruct) TerminatedKey(examID string) string {
	return fmt.Sprintf("exam:%s:terminated", examID)
}

// AnswersKey returns the key for a candidate's live answer hash.
func (r *CacheKeyStruct) AnswersKey(examID string) string {
	return fmt.Sprintf("exam:%s:answers", examID)
}

var CacheKey = NewCacheKeyStruct()
