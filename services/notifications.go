package services

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"

	"golang.org/x/exp/slices"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationService is the single entry point for notification fan-out:
// persisting rows, keeping each recipient's unread counter in step, and
// dispatching push messages through the Expo gateway.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// Notify persists a notification, bumps the recipient's unread counter, and
// pushes it unless the recipient muted the type or the group it points at.
func (ns *NotificationService) Notify(toID uint, fromID *uint, ntype, title, body, refType string, refID uint, data map[string]string) (*models.Notification, error) {
	var recipient models.User
	if err := storage.DB.First(&recipient, toID).Error; err != nil {
		return nil, err
	}

	var raw datatypes.JSON
	if data != nil {
		b, _ := json.Marshal(data)
		raw = datatypes.JSON(b)
	}

	n := models.Notification{
		ToID:    toID,
		FromID:  fromID,
		Type:    ntype,
		Title:   title,
		Body:    body,
		RefType: refType,
		RefID:   refID,
		Data:    raw,
	}
	if err := storage.DB.Create(&n).Error; err != nil {
		return nil, err
	}

	incrementUnread(toID)

	ns.push(&recipient, &n)
	return &n, nil
}

// Bump re-stamps an existing notification instead of duplicating it: the
// timestamp refreshes, a read row flips back to unread (counter corrected),
// and the push goes out again.
func (ns *NotificationService) Bump(n *models.Notification) error {
	updates := map[string]interface{}{"created_at": time.Now()}
	if n.Read {
		updates["read"] = false
		updates["read_at"] = nil
		incrementUnread(n.ToID)
	}
	if err := storage.DB.Model(n).Updates(updates).Error; err != nil {
		return err
	}
	n.Read = false
	n.ReadAt = nil

	var recipient models.User
	if err := storage.DB.First(&recipient, n.ToID).Error; err == nil {
		ns.push(&recipient, n)
	}
	return nil
}

// FindExisting looks up the newest notification matching the dedup tuple
// (to, from, type, subject). Used by request/invite emitters so a repeated
// action bumps rather than duplicates.
func (ns *NotificationService) FindExisting(toID uint, fromID *uint, ntype, refType string, refID uint) (*models.Notification, bool) {
	var n models.Notification
	q := storage.DB.Where("to_id = ? AND type = ? AND ref_type = ? AND ref_id = ?", toID, ntype, refType, refID)
	if fromID != nil {
		q = q.Where("from_id = ?", *fromID)
	}
	if err := q.Order("created_at DESC").First(&n).Error; err != nil {
		return nil, false
	}
	return &n, true
}

// NotifyOrBump is the dedup entry point: at most one unread notification per
// (to, from, type, subject) tuple, best-effort via lookup-then-write.
func (ns *NotificationService) NotifyOrBump(toID uint, fromID *uint, ntype, title, body, refType string, refID uint, data map[string]string) (*models.Notification, error) {
	if existing, ok := ns.FindExisting(toID, fromID, ntype, refType, refID); ok {
		if err := ns.Bump(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	return ns.Notify(toID, fromID, ntype, title, body, refType, refID, data)
}

// MarkRead flips a row to read, decrementing the counter once.
func (ns *NotificationService) MarkRead(n *models.Notification) error {
	if n.Read {
		return nil
	}
	now := time.Now()
	if err := storage.DB.Model(n).Updates(map[string]interface{}{"read": true, "read_at": now}).Error; err != nil {
		return err
	}
	n.Read = true
	n.ReadAt = &now
	decrementUnread(n.ToID)
	return nil
}

// MarkAllRead flips every unread row for the user and zeroes the counter.
func (ns *NotificationService) MarkAllRead(userID uint) error {
	now := time.Now()
	if err := storage.DB.Model(&models.Notification{}).
		Where("to_id = ? AND read = ?", userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": now}).Error; err != nil {
		return err
	}
	return storage.DB.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("unread_notifications", 0).Error
}

// Delete removes a row, decrementing the counter only when it was unread.
func (ns *NotificationService) Delete(n *models.Notification) error {
	if !n.Read {
		decrementUnread(n.ToID)
	}
	return storage.DB.Delete(n).Error
}

// DeleteForRef removes every notification pointing at the subject entity
// (used when a group or post is deleted), correcting each recipient's unread
// counter for the rows that were actually unread.
func (ns *NotificationService) DeleteForRef(refType string, refID uint) error {
	var rows []models.Notification
	if err := storage.DB.Where("ref_type = ? AND ref_id = ?", refType, refID).Find(&rows).Error; err != nil {
		return err
	}
	for i := range rows {
		if !rows[i].Read {
			decrementUnread(rows[i].ToID)
		}
	}
	return storage.DB.Where("ref_type = ? AND ref_id = ?", refType, refID).
		Delete(&models.Notification{}).Error
}

// push dispatches the notification to the recipient's devices unless muted.
func (ns *NotificationService) push(recipient *models.User, n *models.Notification) {
	if recipient.AllowsNotifications == nil || !*recipient.AllowsNotifications {
		return
	}
	if slices.Contains(recipient.MutedTypeList(), n.Type) {
		return
	}
	if n.RefType == models.RefGroup && slices.Contains(recipient.MutedGroupList(), n.RefID) {
		return
	}

	tokens := recipient.PushTokenList()
	if len(tokens) == 0 {
		return
	}

	data := n.DataMap()
	data["type"] = n.Type
	data["refType"] = n.RefType

	messages := make([]PushMessage, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, PushMessage{
			To:    token,
			Title: n.Title,
			Body:  n.Body,
			Data:  data,
			Sound: "default",
		})
	}
	if err := SendPushMessages(messages); err != nil {
		log.Printf("notifications: push to user %d failed: %v", recipient.ID, err)
	}
}

// Counter updates are single SQL expressions so concurrent fan-outs to the
// same recipient cannot lose an increment. The counter never drops below 0.
func incrementUnread(userID uint) {
	storage.DB.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("unread_notifications", gorm.Expr("unread_notifications + 1"))
}

func decrementUnread(userID uint) {
	storage.DB.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("unread_notifications",
			gorm.Expr("CASE WHEN unread_notifications > 0 THEN unread_notifications - 1 ELSE 0 END"))
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
