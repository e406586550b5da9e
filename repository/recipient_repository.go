package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/utils"
	"gorm.io/gorm"
)

// RecipientRepositoryImpl implements the RecipientRepository interface
type RecipientRepositoryImpl struct {
	*BaseRepository[models.Recipient, models.RecipientFilter]
}

// NewRecipientRepository creates a new recipient repository
func NewRecipientRepository(db *gorm.DB) RecipientRepository {
	return &RecipientRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Recipient, models.RecipientFilter](db),
	}
}

// ByInvitationCode retrieves a recipient by its invitation code within one
// campaign/site scope
func (r *RecipientRepositoryImpl) ByInvitationCode(ctx context.Context, campaignID, siteID uint, code string) (*models.Recipient, error) {
	db := r.getDB(ctx)

	var recipient models.Recipient
	err := db.Where("campaign_id = ? AND site_id = ? AND invitation_code = ?", campaignID, siteID, code).
		First(&recipient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find recipient by invitation code: %w", err)
	}
	return &recipient, nil
}

// ListByCampaignSite retrieves recipients for one campaign/site scope with pagination
func (r *RecipientRepositoryImpl) ListByCampaignSite(ctx context.Context, campaignID, siteID uint, limit, offset int) ([]*models.Recipient, error) {
	filter := models.RecipientFilter{CampaignID: &campaignID, SiteID: &siteID}
	return r.ByFilter(ctx, filter, "id ASC", limit, offset)
}

// ListPendingIDs returns ids of recipients that still need at least one of
// the requested channels. SMS-pending means a phone is stored and
// sms_send_date is unset; email-pending is symmetric.
func (r *RecipientRepositoryImpl) ListPendingIDs(ctx context.Context, campaignID, siteID uint, smsPending, emailPending bool) ([]uint, error) {
	if !smsPending && !emailPending {
		return nil, nil
	}

	db := r.getDB(ctx).Model(&models.Recipient{}).
		Where("campaign_id = ? AND site_id = ?", campaignID, siteID)

	const smsCond = "(phone IS NOT NULL AND phone <> '' AND sms_send_date IS NULL)"
	const emailCond = "(email IS NOT NULL AND email <> '' AND email_send_date IS NULL)"
	switch {
	case smsPending && emailPending:
		db = db.Where(smsCond + " OR " + emailCond)
	case smsPending:
		db = db.Where(smsCond)
	default:
		db = db.Where(emailCond)
	}

	var ids []uint
	if err := db.Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending recipient ids: %w", err)
	}
	return ids, nil
}

// setOnceDate writes a timestamp column only when it is still NULL so a
// send/open date is never overwritten or cleared.
func (r *RecipientRepositoryImpl) setOnceDate(ctx context.Context, recipientID uint, column string, at time.Time) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Recipient{}).
		Where("id = ? AND "+column+" IS NULL", recipientID).
		Updates(map[string]any{column: at.UTC(), "updated_at": utils.UTCNow()}).Error
	if err != nil {
		return fmt.Errorf("failed to set %s for recipient %d: %w", column, recipientID, err)
	}
	return nil
}

// MarkSMSSent records the SMS send timestamp, set once
func (r *RecipientRepositoryImpl) MarkSMSSent(ctx context.Context, recipientID uint, at time.Time) error {
	return r.setOnceDate(ctx, recipientID, "sms_send_date", at)
}

// MarkEmailSent records the email send timestamp, set once
func (r *RecipientRepositoryImpl) MarkEmailSent(ctx context.Context, recipientID uint, at time.Time) error {
	return r.setOnceDate(ctx, recipientID, "email_send_date", at)
}

// MarkSMSOpened records the SMS open timestamp, set once
func (r *RecipientRepositoryImpl) MarkSMSOpened(ctx context.Context, recipientID uint, at time.Time) error {
	return r.setOnceDate(ctx, recipientID, "sms_open_date", at)
}

// MarkEmailOpened records the email open timestamp, set once
func (r *RecipientRepositoryImpl) MarkEmailOpened(ctx context.Context, recipientID uint, at time.Time) error {
	return r.setOnceDate(ctx, recipientID, "email_open_date", at)
}

// SetSubmissionID correlates an external form submission with the recipient
func (r *RecipientRepositoryImpl) SetSubmissionID(ctx context.Context, recipientID uint, submissionID string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Recipient{}).
		Where("id = ?", recipientID).
		Updates(map[string]any{"submission_id": submissionID, "updated_at": utils.UTCNow()}).Error
	if err != nil {
		return fmt.Errorf("failed to set submission id for recipient %d: %w", recipientID, err)
	}
	return nil
}

// Update updates a recipient
func (r *RecipientRepositoryImpl) Update(ctx context.Context, recipient *models.Recipient) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Save(recipient).Error
	if err != nil {
		return fmt.Errorf("failed to update recipient: %w", err)
	}
	return nil
}

// Delete removes a single recipient
func (r *RecipientRepositoryImpl) Delete(ctx context.Context, id uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Delete(&models.Recipient{}, id).Error
	if err != nil {
		return fmt.Errorf("failed to delete recipient %d: %w", id, err)
	}
	return nil
}

// DeleteBulk removes many recipients and returns how many rows were hit
func (r *RecipientRepositoryImpl) DeleteBulk(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	res := db.Where("id IN ?", ids).Delete(&models.Recipient{})
	if err = res.Error; err != nil {
		return 0, fmt.Errorf("failed to bulk delete recipients: %w", err)
	}
	return res.RowsAffected, nil
}

// DeleteByCampaign removes every recipient of a campaign
func (r *RecipientRepositoryImpl) DeleteByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	res := db.Where("campaign_id = ?", campaignID).Delete(&models.Recipient{})
	if err = res.Error; err != nil {
		return 0, fmt.Errorf("failed to delete recipients of campaign %d: %w", campaignID, err)
	}
	return res.RowsAffected, nil
}

// DayCounters recounts the analytics counters for recipients created on one
// calendar day. The result carries only counter fields; the caller owns
// scope assignment and persistence.
func (r *RecipientRepositoryImpl) DayCounters(ctx context.Context, campaignID, siteID uint, day time.Time) (*models.CampaignStats, error) {
	db := r.getDB(ctx)

	dayStart := utils.DayStart(day)
	dayEnd := dayStart.Add(24 * time.Hour)

	type row struct {
		TotalRecipients int
		EmailsSent      int
		SMSSent         int
		EmailsOpened    int
		SMSOpened       int
		Submissions     int
		Expired         int
	}
	var out row
	err := db.Model(&models.Recipient{}).
		Select(
			"COUNT(*) AS total_recipients,"+
				" COUNT(email_send_date) AS emails_sent,"+
				" COUNT(sms_send_date) AS sms_sent,"+
				" COUNT(email_open_date) AS emails_opened,"+
				" COUNT(sms_open_date) AS sms_opened,"+
				" COUNT(submission_id) AS submissions,"+
				" COUNT(*) FILTER (WHERE submission_id IS NULL AND invitation_expiry_date IS NOT NULL AND invitation_expiry_date < ?) AS expired",
			utils.UTCNow()).
		Where("campaign_id = ? AND site_id = ? AND created_at >= ? AND created_at < ?",
			campaignID, siteID, dayStart, dayEnd).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count recipients for %s: %w", dayStart.Format("2006-01-02"), err)
	}

	return &models.CampaignStats{
		CampaignID:      campaignID,
		SiteID:          siteID,
		Date:            dayStart,
		TotalRecipients: out.TotalRecipients,
		EmailsSent:      out.EmailsSent,
		SMSSent:         out.SMSSent,
		EmailsOpened:    out.EmailsOpened,
		SMSOpened:       out.SMSOpened,
		Submissions:     out.Submissions,
		Expired:         out.Expired,
	}, nil
}

// ByFilter retrieves recipients based on filter criteria
func (r *RecipientRepositoryImpl) ByFilter(ctx context.Context, filter models.RecipientFilter, orderBy string, limit, offset int) ([]*models.Recipient, error) {
	db := applyPage(r.applyFilter(r.getDB(ctx), filter), orderBy, limit, offset)

	var recipients []*models.Recipient
	if err := db.Find(&recipients).Error; err != nil {
		return nil, err
	}
	return recipients, nil
}

// Count returns the number of recipients matching the filter
func (r *RecipientRepositoryImpl) Count(ctx context.Context, filter models.RecipientFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.getDB(ctx).Model(&models.Recipient{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any recipient matching the filter exists
func (r *RecipientRepositoryImpl) Exists(ctx context.Context, filter models.RecipientFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *RecipientRepositoryImpl) applyFilter(db *gorm.DB, filter models.RecipientFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.SiteID != nil {
		db = db.Where("site_id = ?", *filter.SiteID)
	}
	if filter.Email != nil {
		db = db.Where("LOWER(email) = LOWER(?)", *filter.Email)
	}
	if filter.Phone != nil {
		db = db.Where("phone = ?", *filter.Phone)
	}
	if filter.InvitationCode != nil {
		db = db.Where("invitation_code = ?", *filter.InvitationCode)
	}
	if filter.HasSubmission != nil {
		if *filter.HasSubmission {
			db = db.Where("submission_id IS NOT NULL")
		} else {
			db = db.Where("submission_id IS NULL")
		}
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}
	return db
}
