package bot

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"foodshare/pkg/errs"
	"foodshare/pkg/logger"
	"foodshare/pkg/models"
)

func (b *Bot) handleStart(c tele.Context) error {
	if s, ok := b.session(c.Sender().ID); ok {
		return b.showMenu(c, s.Role)
	}
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(menu.Row(menu.Contact(messages["share_contact"])))
	return c.Send(messages["welcome"], menu)
}

func (b *Bot) handleContact(c tele.Context) error {
	contact := c.Message().Contact
	if contact.UserID != c.Sender().ID {
		return c.Send(messages["own_contact"])
	}

	user, err := b.Svc.User().LinkTelegram(context.Background(), contact.PhoneNumber, c.Chat().ID)
	if errs.IsNotFound(err) {
		return c.Send(messages["not_registered"], tele.RemoveKeyboard)
	}
	if err != nil {
		b.Log.Error("link telegram failed", logger.Error(err))
		return c.Send(messages["failed"])
	}

	b.remember(c.Sender().ID, user)
	if err := c.Send(messages["linked"], tele.RemoveKeyboard); err != nil {
		return err
	}
	return b.showMenu(c, user.Role)
}

func (b *Bot) showMenu(c tele.Context, role models.Role) error {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	var first tele.Row
	switch role {
	case models.RoleDonor:
		first = menu.Row(menu.Text(btnMyDonations), menu.Text(btnTasks))
	case models.RoleReceiver:
		first = menu.Row(menu.Text(btnAvailable), menu.Text(btnMyClaims))
	default:
		first = menu.Row(menu.Text(btnTasks))
	}
	menu.Reply(first, menu.Row(menu.Text(btnNotifications), menu.Text(btnLeaderboard)))
	return c.Send(messages["menu"], menu)
}

// linked resolves the sender's session or asks them to link first.
func (b *Bot) linked(c tele.Context) (*session, bool) {
	s, ok := b.session(c.Sender().ID)
	if !ok {
		_ = c.Send(messages["link_first"])
	}
	return s, ok
}

func (b *Bot) handleAvailable(c tele.Context) error {
	if _, ok := b.linked(c); !ok {
		return nil
	}
	list, err := b.Svc.Donation().ListAvailable(context.Background())
	if err != nil {
		return b.fail(c, err)
	}
	if len(list) == 0 {
		return c.Send(messages["no_donations"])
	}
	for _, d := range list {
		menu := &tele.ReplyMarkup{}
		menu.Inline(menu.Row(
			menu.Data("🙋 Pick up", callbackData(actionClaimPickup, d.ID)),
			menu.Data("🚚 Need delivery", callbackData(actionClaimDelivery, d.ID)),
		))
		if err := c.Send(formatDonation(d), menu); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleMyDonations(c tele.Context) error {
	s, ok := b.linked(c)
	if !ok {
		return nil
	}
	list, err := b.Svc.Donation().ListByDonor(context.Background(), s.UserID)
	if err != nil {
		return b.fail(c, err)
	}
	return b.sendWithActions(c, s, list)
}

func (b *Bot) handleMyClaims(c tele.Context) error {
	s, ok := b.linked(c)
	if !ok {
		return nil
	}
	list, err := b.Svc.Donation().ListByReceiver(context.Background(), s.UserID)
	if err != nil {
		return b.fail(c, err)
	}
	return b.sendWithActions(c, s, list)
}

func (b *Bot) handleTasks(c tele.Context) error {
	s, ok := b.linked(c)
	if !ok {
		return nil
	}
	list, err := b.Svc.Donation().ListVolunteerTasks(context.Background(), s.UserID)
	if err != nil {
		return b.fail(c, err)
	}
	if len(list) == 0 {
		return c.Send(messages["no_tasks"])
	}
	return b.sendWithActions(c, s, list)
}

func (b *Bot) sendWithActions(c tele.Context, s *session, list []*models.Donation) error {
	if len(list) == 0 {
		return c.Send(messages["no_donations"])
	}
	for _, d := range list {
		btns := actionsFor(d, s.actor())
		if len(btns) == 0 {
			if err := c.Send(formatDonation(d)); err != nil {
				return err
			}
			continue
		}
		menu := &tele.ReplyMarkup{}
		row := make(tele.Row, 0, len(btns))
		for _, a := range btns {
			row = append(row, menu.Data(a.label(), callbackData(a, d.ID)))
		}
		menu.Inline(row)
		if err := c.Send(formatDonation(d), menu); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleLeaderboard(c tele.Context) error {
	board, err := b.Svc.Leaderboard().Board(context.Background(), 5)
	if err != nil {
		return b.fail(c, err)
	}
	var sb strings.Builder
	sb.WriteString("🏆 Top volunteers\n")
	writeEntries(&sb, board.Volunteers)
	sb.WriteString("\n🏆 Top donors\n")
	writeEntries(&sb, board.Donors)
	return c.Send(sb.String())
}

func (b *Bot) handleNotifications(c tele.Context) error {
	s, ok := b.linked(c)
	if !ok {
		return nil
	}
	list, err := b.Svc.Notification().ListForUser(context.Background(), s.actor(), s.UserID)
	if err != nil {
		return b.fail(c, err)
	}
	if len(list.Notifications) == 0 {
		return c.Send(messages["no_notif"])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔔 %d unread\n\n", list.Unread)
	for i, n := range list.Notifications {
		if i == 10 {
			break
		}
		mark := "•"
		if !n.IsRead {
			mark = "🆕"
		}
		fmt.Fprintf(&sb, "%s %s\n", mark, n.Message)
	}
	return c.Send(sb.String())
}

func (b *Bot) fail(c tele.Context, err error) error {
	b.Log.Error("telegram request failed", logger.Int64("chat_id", c.Sender().ID), logger.Error(err))
	return c.Send(messages["failed"])
}

func formatDonation(d *models.Donation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🍲 #%d %s × %d\n", d.ID, d.FoodType, d.Quantity)
	if d.Description != "" {
		fmt.Fprintf(&sb, "%s\n", d.Description)
	}
	fmt.Fprintf(&sb, "📍 %s\n", d.Location.Address)
	fmt.Fprintf(&sb, "📊 %s", d.Status)
	if d.Status == models.StatusAvailable {
		fmt.Fprintf(&sb, " until %s", d.ExpiryTime.Format("02 Jan 15:04"))
	}
	if d.DeliveryNeeded && d.Status != models.StatusAvailable {
		sb.WriteString(" · delivery")
	}
	return sb.String()
}

func writeEntries(sb *strings.Builder, entries []models.LeaderboardEntry) {
	if len(entries) == 0 {
		sb.WriteString("-\n")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(sb, "%d. %s · %d pts\n", e.Rank, e.Name, e.Points)
	}
}
