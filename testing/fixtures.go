// Package testing provides test utilities and database setup for testing the invitation service
package testing

import (
	"fmt"
	"math/rand"

	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/utils"
	"github.com/lib/pq"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestSite creates a site with a unique handle
func (tf *TestFixtures) CreateTestSite(language string, isPrimary bool) (*models.Site, error) {
	site := &models.Site{
		Handle:    fmt.Sprintf("site-%s-%d", language, rand.Intn(1000000)),
		Name:      fmt.Sprintf("Test Site (%s)", language),
		Language:  language,
		IsPrimary: isPrimary,
	}

	if err := tf.DB.DB.Create(site).Error; err != nil {
		return nil, fmt.Errorf("failed to create test site: %w", err)
	}
	return site, nil
}

// CreateTestCampaign creates an enabled campaign with content for the given site
func (tf *TestFixtures) CreateTestCampaign(site *models.Site) (*models.Campaign, error) {
	campaign := &models.Campaign{
		Name:    fmt.Sprintf("Test Campaign %d", rand.Intn(1000000)),
		Type:    models.CampaignTypeSurvey,
		Enabled: true,
	}
	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	content := &models.CampaignContent{
		CampaignID:   campaign.ID,
		SiteID:       site.ID,
		Enabled:      true,
		EmailSubject: "You are invited",
		EmailBody:    "<p>Hello {name}, your code is {code}.</p>",
		SMSBody:      "Hello {name}, your code is {code}.",
	}
	if err := tf.DB.DB.Create(content).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign content: %w", err)
	}
	campaign.Contents = []models.CampaignContent{*content}

	return campaign, nil
}

// CreateTestRecipient creates a recipient with both contact methods set
func (tf *TestFixtures) CreateTestRecipient(campaign *models.Campaign, site *models.Site) (*models.Recipient, error) {
	n := rand.Intn(900000000) + 100000000
	email := fmt.Sprintf("recipient.%d@example.com", n)
	phone := fmt.Sprintf("+3161%08d", n%100000000)

	recipient := &models.Recipient{
		CampaignID: campaign.ID,
		SiteID:     site.ID,
		Name:       "Test Recipient",
		Email:      &email,
		Phone:      &phone,
	}

	if err := tf.DB.DB.Create(recipient).Error; err != nil {
		return nil, fmt.Errorf("failed to create test recipient: %w", err)
	}
	return recipient, nil
}

// CreateTestRecipients creates count recipients for the campaign and site
func (tf *TestFixtures) CreateTestRecipients(campaign *models.Campaign, site *models.Site, count int) ([]*models.Recipient, error) {
	recipients := make([]*models.Recipient, 0, count)
	for i := 0; i < count; i++ {
		r, err := tf.CreateTestRecipient(campaign, site)
		if err != nil {
			return nil, fmt.Errorf("failed to create recipient %d: %w", i, err)
		}
		recipients = append(recipients, r)
	}
	return recipients, nil
}

// CreateSentRecipient creates a recipient whose invitations already went out
// on both channels
func (tf *TestFixtures) CreateSentRecipient(campaign *models.Campaign, site *models.Site) (*models.Recipient, error) {
	recipient, err := tf.CreateTestRecipient(campaign, site)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	recipient.EmailSendDate = &now
	recipient.SMSSendDate = &now
	if err := tf.DB.DB.Save(recipient).Error; err != nil {
		return nil, fmt.Errorf("failed to mark recipient sent: %w", err)
	}
	return recipient, nil
}

// CreateTestDispatchTask creates a pending dispatch task over the given recipients
func (tf *TestFixtures) CreateTestDispatchTask(campaign *models.Campaign, site *models.Site, recipients []*models.Recipient) (*models.DispatchTask, error) {
	ids := make([]int64, 0, len(recipients))
	for _, r := range recipients {
		ids = append(ids, int64(r.ID))
	}

	task := &models.DispatchTask{
		CampaignID:   campaign.ID,
		SiteID:       site.ID,
		RecipientIDs: pq.Int64Array(ids),
		SendSMS:      true,
		SendEmail:    true,
		Status:       models.DispatchTaskStatusPending,
		ScheduledAt:  utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(task).Error; err != nil {
		return nil, fmt.Errorf("failed to create test dispatch task: %w", err)
	}
	return task, nil
}

// CreateTestActivity creates one activity log entry for the campaign
func (tf *TestFixtures) CreateTestActivity(campaignID uint, action string) (*models.ActivityLog, error) {
	entry := &models.ActivityLog{
		CampaignID: &campaignID,
		Action:     action,
		Source:     models.ActivitySourceCP,
		Summary:    fmt.Sprintf("test %s", action),
	}

	if err := tf.DB.DB.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create test activity entry: %w", err)
	}
	return entry, nil
}
