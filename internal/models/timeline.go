package models

import (
	"encoding/json"
	"time"
)

// EntryKind tags a TimelineEntry.
type EntryKind string

const (
	KindConsultation EntryKind = "consultation"
	KindPrescription EntryKind = "prescription"
	KindExam         EntryKind = "exam"
)

// Rank orders kinds sharing a timestamp.
func (k EntryKind) Rank() int {
	switch k {
	case KindConsultation:
		return 0
	case KindPrescription:
		return 1
	default:
		return 2
	}
}

// TimelineEntry is a read-time variant over the three clinical record kinds.
// Exactly one of Consultation, Prescription or Exam is set, matching Kind.
type TimelineEntry struct {
	Kind         EntryKind
	OccurredAt   time.Time
	Consultation *Consultation
	Prescription *Prescription
	Exam         *Exam
}

func ConsultationEntry(c Consultation) TimelineEntry {
	return TimelineEntry{Kind: KindConsultation, OccurredAt: c.OccurredAt, Consultation: &c}
}

func PrescriptionEntry(p Prescription) TimelineEntry {
	return TimelineEntry{Kind: KindPrescription, OccurredAt: p.IssuedAt, Prescription: &p}
}

func ExamEntry(e Exam) TimelineEntry {
	return TimelineEntry{Kind: KindExam, OccurredAt: e.ExamDate, Exam: &e}
}

// RecordID returns the id of the wrapped record.
func (e TimelineEntry) RecordID() int64 {
	switch {
	case e.Consultation != nil:
		return e.Consultation.ID
	case e.Prescription != nil:
		return e.Prescription.ID
	case e.Exam != nil:
		return e.Exam.ID
	}
	return 0
}

func (e TimelineEntry) record() any {
	switch e.Kind {
	case KindConsultation:
		return e.Consultation
	case KindPrescription:
		return e.Prescription
	default:
		return e.Exam
	}
}

// MarshalJSON renders {"kind", "occurred_at", "record"}.
func (e TimelineEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind       EntryKind `json:"kind"`
		OccurredAt time.Time `json:"occurred_at"`
		Record     any       `json:"record"`
	}{e.Kind, e.OccurredAt, e.record()})
}
