package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadTerminal = "notification.lead.terminal"

const TaskInquiryReply = "notification.inquiry.reply"

type LeadTerminalPayload struct {
	LeadID        string `json:"leadId"`
	BrandID       string `json:"brandId"`
	Status        string `json:"status"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
}

type InquiryReplyPayload struct {
	InquiryID     string `json:"inquiryId"`
	ReplyID       string `json:"replyId"`
	BrandID       string `json:"brandId"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	Subject       string `json:"subject"`
	Message       string `json:"message"`
}

func NewLeadTerminalTask(payload LeadTerminalPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadTerminal, data), nil
}

func ParseLeadTerminalPayload(task *asynq.Task) (LeadTerminalPayload, error) {
	var payload LeadTerminalPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadTerminalPayload{}, err
	}
	return payload, nil
}

func NewInquiryReplyTask(payload InquiryReplyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInquiryReply, data), nil
}

func ParseInquiryReplyPayload(task *asynq.Task) (InquiryReplyPayload, error) {
	var payload InquiryReplyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return InquiryReplyPayload{}, err
	}
	return payload, nil
}
