package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) GetChat(chatId string) (Chat, error) {
	args := m.Called(chatId)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockChatRepository) GetParticipants(chatId string) ([]Participant, error) {
	args := m.Called(chatId)
	return args.Get(0).([]Participant), args.Error(1)
}
func (m *MockChatRepository) IsParticipant(chatId, userId string) (bool, error) {
	args := m.Called(chatId, userId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) CreateMessage(params CreateMessageParams) (Message, bool, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Bool(1), args.Error(2)
}
func (m *MockChatRepository) GetMessage(messageId string) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) UpdateChatOnMessage(chatId, messageId, senderId string, sentAt time.Time) error {
	args := m.Called(chatId, messageId, senderId, sentAt)
	return args.Error(0)
}
func (m *MockChatRepository) MarkDelivered(messageId, userId string, at time.Time) error {
	args := m.Called(messageId, userId, at)
	return args.Error(0)
}
func (m *MockChatRepository) MarkRead(messageId, userId string, at time.Time) error {
	args := m.Called(messageId, userId, at)
	return args.Error(0)
}
func (m *MockChatRepository) MarkChatRead(chatId, userId string, at time.Time) ([]string, error) {
	args := m.Called(chatId, userId, at)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) ToggleReaction(messageId, userId, emoji string, at time.Time) (bool, error) {
	args := m.Called(messageId, userId, emoji, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) GetReactions(messageId string) ([]Reaction, error) {
	args := m.Called(messageId)
	if reactions, ok := args.Get(0).([]Reaction); ok {
		return reactions, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) UpdateMessageContent(messageId, content string, at time.Time) error {
	args := m.Called(messageId, content, at)
	return args.Error(0)
}
func (m *MockChatRepository) SoftDeleteMessage(messageId, deletedBy string, at time.Time) error {
	args := m.Called(messageId, deletedBy, at)
	return args.Error(0)
}
func (m *MockChatRepository) SetUserPresence(userId string, online bool, lastSeen time.Time) error {
	args := m.Called(userId, online, lastSeen)
	return args.Error(0)
}
func (m *MockChatRepository) GetUserChatIds(userId string) ([]string, error) {
	args := m.Called(userId)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}
