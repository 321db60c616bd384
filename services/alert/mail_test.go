package alertsvc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/utulivu/core/chat"
	"github.com/trezcool/utulivu/core/user"
	alertsvc "github.com/trezcool/utulivu/services/alert"
	emailsvc "github.com/trezcool/utulivu/services/email"
	inmemdb "github.com/trezcool/utulivu/storage/database/inmem"
	"github.com/trezcool/utulivu/testutil"
)

func TestMailAlerter_AlertRisk(t *testing.T) {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	schoolRepo := inmemdb.NewSchoolRepository(db)

	sch := testutil.CreateSchool(t, schoolRepo, "Lakeside High", "LSH")
	other := testutil.CreateSchool(t, schoolRepo, "Hillview", "HV")
	empty := testutil.CreateSchool(t, schoolRepo, "Riverside", "RS")

	testutil.CreateSuperAdmin(t, usrRepo, "superadmin")
	testutil.CreateSchoolAdmin(t, usrRepo, "lakeadmin", sch.ID)
	testutil.CreateSchoolAdmin(t, usrRepo, "lakeadmin2", sch.ID)
	testutil.CreateSchoolAdmin(t, usrRepo, "hilladmin", other.ID)
	testutil.CreateUser(t, usrRepo, "Gone", "goneadmin", "gone@utulivu.test", []string{user.RoleAdmin}, sch.ID, false)

	alert := chat.RiskAlert{
		StudentID:     "st-1",
		StudentName:   "Amani Njeri",
		StudentNumber: "S001",
		SessionID:     "sess-1",
		DetectedAt:    time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
	}

	recipients := func(mailSvc *emailsvc.ConsoleServiceMock) []string {
		sent := mailSvc.SentMessages()
		require.Len(t, sent, 1)
		var addrs []string
		for _, a := range append(sent[0].To, sent[0].Bcc...) {
			addrs = append(addrs, a.Address)
		}
		return addrs
	}

	t.Run("school admins", func(t *testing.T) {
		mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
		alerter := alertsvc.NewMailAlerter(usrRepo, mailSvc, conf)

		a := alert
		a.SchoolID = sch.ID
		require.NoError(t, alerter.AlertRisk(context.Background(), a))
		assert.ElementsMatch(t, []string{"lakeadmin@utulivu.test", "lakeadmin2@utulivu.test"}, recipients(mailSvc))

		msg := mailSvc.SentMessages()[0]
		assert.Equal(t, "Wellbeing alert", msg.Subject)
		assert.Contains(t, msg.TextContent, "Amani Njeri (S001)")
		assert.NotContains(t, msg.TextContent, "sess-1")
	})

	t.Run("falls back to super admins", func(t *testing.T) {
		mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
		alerter := alertsvc.NewMailAlerter(usrRepo, mailSvc, conf)

		a := alert
		a.SchoolID = empty.ID
		require.NoError(t, alerter.AlertRisk(context.Background(), a))
		assert.Equal(t, []string{"superadmin@utulivu.test"}, recipients(mailSvc))
	})

	t.Run("nobody to alert", func(t *testing.T) {
		mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
		alerter := alertsvc.NewMailAlerter(inmemdb.NewUserRepository(inmemdb.Open()), mailSvc, conf)

		assert.Error(t, alerter.AlertRisk(context.Background(), alert))
		assert.Empty(t, mailSvc.SentMessages())
	})
}
