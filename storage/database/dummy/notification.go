package dummydb

import (
	"time"

	"github.com/richyfesta/arnoma/core/notification"
)

type sentRecordLog struct {
	db *sentRecordTable
}

var _ notification.Log = (*sentRecordLog)(nil) // interface compliance check

func NewSentRecordLog(db *DB) notification.Log {
	return &sentRecordLog{db: db.sentRecords}
}

func (l *sentRecordLog) AppendSentRecord(rec notification.SentRecord) (notification.SentRecord, error) {
	l.db.Lock()
	defer l.db.Unlock()

	rec.ID = int64(len(l.db.rows) + 1)
	l.db.rows = append(l.db.rows, rec)
	return rec, nil
}

func (l *sentRecordLog) LastSentRecord(templateName, recipient string, since time.Time) (notification.SentRecord, error) {
	l.db.RLock()
	defer l.db.RUnlock()

	// rows are append-only; walk backwards for the most recent match
	for i := len(l.db.rows) - 1; i >= 0; i-- {
		rec := l.db.rows[i]
		if rec.TemplateName == templateName && rec.Recipient == recipient && !rec.SentAt.Before(since) {
			return rec, nil
		}
	}
	return notification.SentRecord{}, notification.ErrNoRecord
}
