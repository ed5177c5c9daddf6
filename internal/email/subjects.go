package email

const (
	subjectLeadConvertedFmt = "Welcome aboard, %s"
	subjectLeadClosedFmt    = "Your request has been closed, %s"
	subjectInquiryReplyFmt  = "Re: %s"
)
