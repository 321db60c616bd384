package alertsvc

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/chat"
	"github.com/trezcool/utulivu/core/user"
)

const (
	riskAlertTemplate = "risk_alert"
	riskAlertSubject  = "Wellbeing alert"
	detectedAtLayout  = "02 Jan 2006 15:04 MST"
)

var errNoRecipients = errors.New("no admin to alert")

// MailAlerter emails wellbeing alerts to the active admins of the student's school.
// Schools without admins fall back to the super admins.
type MailAlerter struct {
	usrRepo user.Repository
	mailSvc core.EmailService
	loc     *time.Location
}

var _ chat.RiskAlerter = (*MailAlerter)(nil)

func NewMailAlerter(usrRepo user.Repository, mailSvc core.EmailService, conf *core.Config) *MailAlerter {
	return &MailAlerter{
		usrRepo: usrRepo,
		mailSvc: mailSvc,
		loc:     conf.Location(),
	}
}

func (a *MailAlerter) AlertRisk(ctx context.Context, alert chat.RiskAlert) error {
	recipients, err := a.recipients(ctx, alert.SchoolID)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return errNoRecipients
	}

	a.mailSvc.SendMessages(&core.EmailMessage{
		Bcc:          recipients[1:],
		To:           recipients[:1],
		Subject:      riskAlertSubject,
		TemplateName: riskAlertTemplate,
		TemplateData: map[string]string{
			"StudentName":   alert.StudentName,
			"StudentNumber": alert.StudentNumber,
			"DetectedAt":    alert.DetectedAt.In(a.loc).Format(detectedAtLayout),
		},
	})
	return nil
}

func (a *MailAlerter) recipients(ctx context.Context, schoolID string) ([]mail.Address, error) {
	active := true
	var admins []user.User
	if schoolID != "" {
		var err error
		admins, err = a.usrRepo.QueryUsers(ctx, &user.QueryFilter{Roles: []string{user.RoleAdmin}, IsActive: &active, SchoolID: schoolID}, nil)
		if err != nil {
			return nil, errors.Wrap(err, "querying school admins")
		}
	}
	if len(admins) == 0 {
		var err error
		admins, err = a.usrRepo.QueryUsers(ctx, &user.QueryFilter{Roles: []string{user.RoleAdminSuper}, IsActive: &active}, nil)
		if err != nil {
			return nil, errors.Wrap(err, "querying super admins")
		}
	}

	addrs := make([]mail.Address, 0, len(admins))
	for _, adm := range admins {
		if adm.Email != "" {
			addrs = append(addrs, mail.Address{Name: adm.Name, Address: adm.Email})
		}
	}
	return addrs, nil
}
