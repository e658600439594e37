package service

import (
	"fmt"
	"math/rand"
	"time"

	"groupcast/internal/models"
)

// SenderService simulates delivery to the outside channels
type SenderService struct {
	successRate float64 // 0.0 to 1.0 (e.g., 0.95 = 95% success)
	rand        *rand.Rand
}

// NewSenderService creates a new sender service
// successRate: probability of successful send (0.0 to 1.0)
// Default: 0.95 (95% success rate)
func NewSenderService(successRate float64) *SenderService {
	if successRate < 0.0 {
		successRate = 0.0
	}
	if successRate > 1.0 {
		successRate = 1.0
	}

	return &SenderService{
		successRate: successRate,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SendResult represents the result of a send attempt
type SendResult struct {
	Success bool
	Error   error
	Latency time.Duration
}

// SendSMS simulates sending a text message to a phone number
func (s *SenderService) SendSMS(phone string, content string) *SendResult {
	return s.send("SMS", phone, content)
}

// SendEmail simulates sending an email
func (s *SenderService) SendEmail(email string, content string) *SendResult {
	return s.send("email", email, content)
}

// SendGroupMe simulates posting to a GroupMe bot
func (s *SenderService) SendGroupMe(phone string, content string) *SendResult {
	return s.send("GroupMe", phone, content)
}

// Send sends a message via the specified channel. The address is a phone
// number for SMS and GroupMe, an email address for email.
func (s *SenderService) Send(channel models.Channel, address string, content string) *SendResult {
	switch channel {
	case models.ChannelEmail:
		return s.SendEmail(address, content)
	case models.ChannelGroupMe:
		return s.SendGroupMe(address, content)
	default:
		return s.SendSMS(address, content)
	}
}

// send is the internal mock implementation
func (s *SenderService) send(channelType string, address string, content string) *SendResult {
	start := time.Now()

	// Simulate network latency (50-200ms)
	latency := time.Duration(50+s.rand.Intn(150)) * time.Millisecond
	time.Sleep(latency)

	// Determine success based on configured success rate
	randomValue := s.rand.Float64()
	success := randomValue < s.successRate

	result := &SendResult{
		Success: success,
		Latency: time.Since(start),
	}

	if !success {
		// Simulate different types of failures
		failures := []string{
			"network timeout",
			"invalid address",
			"rate limit exceeded",
			"service temporarily unavailable",
			"mailbox full",
		}
		failureReason := failures[s.rand.Intn(len(failures))]
		result.Error = fmt.Errorf("failed to send %s to %s: %s", channelType, address, failureReason)
	}

	return result
}

// GetSuccessRate returns the configured success rate
func (s *SenderService) GetSuccessRate() float64 {
	return s.successRate
}

// SetSuccessRate updates the success rate (for testing)
func (s *SenderService) SetSuccessRate(rate float64) {
	if rate < 0.0 {
		rate = 0.0
	}
	if rate > 1.0 {
		rate = 1.0
	}
	s.successRate = rate
}
