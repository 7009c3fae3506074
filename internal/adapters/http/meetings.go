package http

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/echolink/echolink/internal/repo"
)

// MeetingsHandler is the meeting-records REST surface. Simple
// request/response glue over the document store; the live engine never
// touches it.
type MeetingsHandler struct {
	Users    repo.UserRepo
	Meetings repo.MeetingRepo
}

func NewMeetingsHandler(users repo.UserRepo, meetings repo.MeetingRepo) *MeetingsHandler {
	return &MeetingsHandler{Users: users, Meetings: meetings}
}

func newMeetingCode() string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return strings.ToUpper(hex.EncodeToString(b[:]))
}

func (h *MeetingsHandler) authorize(c *gin.Context, token string) (*repo.User, bool) {
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return nil, false
	}
	user, err := h.Users.ByToken(c.Request.Context(), token)
	if errors.Is(err, repo.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("user lookup")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong"})
		return nil, false
	}
	return user, true
}

func (h *MeetingsHandler) Create(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	_ = c.ShouldBindJSON(&req)
	host, ok := h.authorize(c, req.Token)
	if !ok {
		return
	}

	m := &repo.Meeting{
		MeetingCode:  newMeetingCode(),
		HostID:       host.ID,
		Participants: []primitive.ObjectID{host.ID},
		Active:       true,
	}
	if err := h.Meetings.Create(c.Request.Context(), m); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Meeting created",
		"meetingCode": m.MeetingCode,
		"hostId":      host.ID,
	})
}

func (h *MeetingsHandler) Join(c *gin.Context) {
	var req struct {
		Token       string `json:"token"`
		MeetingCode string `json:"meetingCode"`
	}
	_ = c.ShouldBindJSON(&req)
	user, ok := h.authorize(c, req.Token)
	if !ok {
		return
	}

	meeting, err := h.Meetings.ByCode(c.Request.Context(), req.MeetingCode)
	if errors.Is(err, repo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Meeting not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("find meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong"})
		return
	}
	if meeting.Locked {
		c.JSON(http.StatusForbidden, gin.H{"message": "Meeting is locked by host"})
		return
	}

	meeting, err = h.Meetings.AddParticipant(c.Request.Context(), req.MeetingCode, user.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("join meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Joined meeting",
		"meetingCode":  meeting.MeetingCode,
		"hostId":       meeting.HostID,
		"participants": meeting.Participants,
	})
}

func (h *MeetingsHandler) Info(c *gin.Context) {
	code := c.Param("meetingCode")
	meeting, err := h.Meetings.ByCode(c.Request.Context(), code)
	if errors.Is(err, repo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Meeting not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("meeting info")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"meetingCode":  meeting.MeetingCode,
		"host":         meeting.HostID,
		"participants": meeting.Participants,
		"locked":       meeting.Locked,
		"active":       meeting.Active,
	})
}
