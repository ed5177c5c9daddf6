package domain

import (
	"fmt"
	"time"
)

// Timestamps are kept at microsecond precision so values survive a round trip
// through Postgres timestamptz unchanged.
const timestampPrecision = time.Microsecond

// Stamp normalizes t to the stored precision in UTC.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(timestampPrecision)
}

// nextUpdatedAt returns a timestamp strictly after prev, preferring now.
func nextUpdatedAt(prev, now time.Time) time.Time {
	now = Stamp(now)
	if !now.After(prev) {
		return prev.Add(timestampPrecision)
	}
	return now
}

func stampOnce(field **time.Time, at time.Time) {
	if *field == nil {
		v := at
		*field = &v
	}
}

// TransitionLead moves a lead to target. Any move between known statuses is
// accepted, including out of terminal statuses. The first entry into contacted,
// qualified or converted stamps the matching timestamp; stage timestamps are
// never cleared or moved.
func TransitionLead(l Lead, target LeadStatus, now time.Time) (Lead, error) {
	if _, ok := leadStatusSet[target]; !ok {
		return l, fmt.Errorf("%w: %q is not a lead status", ErrInvalidTransition, target)
	}

	out := l.Clone()
	out.UpdatedAt = nextUpdatedAt(l.UpdatedAt, now)
	out.Status = target

	switch target {
	case LeadStatusContacted:
		stampOnce(&out.ContactedAt, out.UpdatedAt)
	case LeadStatusQualified:
		stampOnce(&out.QualifiedAt, out.UpdatedAt)
	case LeadStatusConverted:
		stampOnce(&out.ConvertedAt, out.UpdatedAt)
	}

	return out, nil
}

// TransitionInquiry moves an inquiry to target. Leaving unread stamps ReadAt the
// first time. Moving to replied requires at least one posted reply; the normal
// path to replied is ApplyReply.
func TransitionInquiry(q Inquiry, target InquiryStatus, now time.Time) (Inquiry, error) {
	if _, ok := inquiryStatusSet[target]; !ok {
		return q, fmt.Errorf("%w: %q is not an inquiry status", ErrInvalidTransition, target)
	}
	if target == InquiryStatusReplied && q.ReplyCount < 1 {
		return q, ErrReplyRequired
	}

	out := q.Clone()
	out.UpdatedAt = nextUpdatedAt(q.UpdatedAt, now)
	out.Status = target

	if target != InquiryStatusUnread {
		stampOnce(&out.ReadAt, out.UpdatedAt)
	}
	if target == InquiryStatusReplied {
		stampOnce(&out.RepliedAt, out.UpdatedAt)
	}

	return out, nil
}

// MarkInquiryRead moves an unread inquiry to read. It reports false, and
// returns q unchanged, for any other status.
func MarkInquiryRead(q Inquiry, now time.Time) (Inquiry, bool) {
	if q.Status != InquiryStatusUnread {
		return q, false
	}
	out, err := TransitionInquiry(q, InquiryStatusRead, now)
	if err != nil {
		return q, false
	}
	return out, true
}

// ApplyReply folds a posted reply into its inquiry. A customer-facing reply
// moves the inquiry to replied and counts; an internal note changes nothing.
func ApplyReply(q Inquiry, r Reply, now time.Time) Inquiry {
	if r.IsInternalNote {
		return q
	}

	out := q.Clone()
	out.ReplyCount++
	out.UpdatedAt = nextUpdatedAt(q.UpdatedAt, now)
	out.Status = InquiryStatusReplied
	stampOnce(&out.ReadAt, out.UpdatedAt)
	stampOnce(&out.RepliedAt, out.UpdatedAt)
	return out
}
