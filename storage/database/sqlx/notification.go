package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/richyfesta/arnoma/core/notification"
)

type sentRecordLog struct {
	db *sqlx.DB
}

var _ notification.Log = (*sentRecordLog)(nil) // interface compliance check

func NewSentRecordLog(db *sqlx.DB) *sentRecordLog {
	return &sentRecordLog{db: db}
}

type sentRecordRow struct {
	ID           int64     `db:"id"`
	TemplateName string    `db:"template_name"`
	Recipient    string    `db:"recipient"`
	SentAt       time.Time `db:"sent_at"`
}

func (l sentRecordLog) AppendSentRecord(rec notification.SentRecord) (notification.SentRecord, error) {
	err := l.db.Get(&rec.ID,
		`INSERT INTO sent_email (template_name, recipient, sent_at) VALUES ($1, $2, $3) RETURNING id`,
		rec.TemplateName, rec.Recipient, rec.SentAt.UTC())
	if err != nil {
		return notification.SentRecord{}, errors.Wrap(err, "inserting sent record")
	}
	return rec, nil
}

func (l sentRecordLog) LastSentRecord(templateName, recipient string, since time.Time) (notification.SentRecord, error) {
	var row sentRecordRow
	err := l.db.Get(&row,
		`SELECT * FROM sent_email
		 WHERE template_name = $1 AND recipient = $2 AND sent_at >= $3
		 ORDER BY sent_at DESC, id DESC LIMIT 1`,
		templateName, recipient, since.UTC())
	if err != nil {
		if err == sql.ErrNoRows {
			return notification.SentRecord{}, notification.ErrNoRecord
		}
		return notification.SentRecord{}, errors.Wrap(err, "finding sent record")
	}
	return notification.SentRecord{
		ID:           row.ID,
		TemplateName: row.TemplateName,
		Recipient:    row.Recipient,
		SentAt:       row.SentAt,
	}, nil
}
