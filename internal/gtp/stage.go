package gtp

// Stage is the position of a message within a 3-step GTP procedure.
type Stage uint8

const (
	StageUnknown Stage = iota
	StageInitial
	StageIntermediate
	StageFinal
)

// CommandFlag marks a GTPv2 sequence id as belonging to a command-triggered
// procedure. It is the most significant bit of the 24-bit wire sequence.
const CommandFlag uint32 = 0x800000

func (s Stage) String() string {
	switch s {
	case StageInitial:
		return "Initial"
	case StageIntermediate:
		return "Intermediate"
	case StageFinal:
		return "Final"
	}
	return "Unknown"
}

var v1Stages = map[uint8]Stage{
	V1EchoRequest:                          StageInitial,
	V1NodeAliveRequest:                     StageInitial,
	V1RedirectionRequest:                   StageInitial,
	V1CreatePDPContextRequest:              StageInitial,
	V1UpdatePDPContextRequest:              StageInitial,
	V1DeletePDPContextRequest:              StageInitial,
	V1InitiatePDPContextActivationRequest:  StageInitial,
	V1PDUNotificationRequest:               StageInitial,
	V1PDUNotificationRejectRequest:         StageInitial,
	V1SendRoutingInfoRequest:               StageInitial,
	V1FailureReportRequest:                 StageInitial,
	V1NoteMSGPRSPresentRequest:             StageInitial,
	V1IdentificationRequest:                StageInitial,
	V1SGSNContextRequest:                   StageInitial,
	V1ForwardRelocationRequest:             StageInitial,
	V1ForwardRelocationComplete:            StageInitial,
	V1RelocationCancelRequest:              StageInitial,
	V1ForwardSRNSContext:                   StageInitial,
	V1UERegistrationQueryRequest:           StageInitial,
	V1RANInformationRelay:                  StageInitial,
	V1MBMSNotificationRequest:              StageInitial,
	V1MBMSNotificationRejectRequest:        StageInitial,
	V1MBMSSessionStartRequest:              StageInitial,
	V1MBMSSessionStopRequest:               StageInitial,
	V1MBMSSessionUpdateRequest:             StageInitial,
	V1SGSNContextResponse:                  StageIntermediate,
	V1EchoResponse:                         StageFinal,
	V1NodeAliveResponse:                    StageFinal,
	V1RedirectionResponse:                  StageFinal,
	V1CreatePDPContextResponse:             StageFinal,
	V1UpdatePDPContextResponse:             StageFinal,
	V1DeletePDPContextResponse:             StageFinal,
	V1InitiatePDPContextActivationResponse: StageFinal,
	V1PDUNotificationResponse:              StageFinal,
	V1PDUNotificationRejectResponse:        StageFinal,
	V1SendRoutingInfoResponse:              StageFinal,
	V1FailureReportResponse:                StageFinal,
	V1NoteMSGPRSPresentResponse:            StageFinal,
	V1IdentificationResponse:               StageFinal,
	V1SGSNContextAcknowledge:               StageFinal,
	V1ForwardRelocationResponse:            StageFinal,
	V1RelocationCancelResponse:             StageFinal,
	V1ForwardRelocationCompleteAcknowledge: StageFinal,
	V1ForwardSRNSContextAcknowledge:        StageFinal,
	V1UERegistrationQueryResponse:          StageFinal,
	V1MBMSNotificationResponse:             StageFinal,
	V1MBMSNotificationRejectResponse:       StageFinal,
	V1MBMSSessionStartResponse:             StageFinal,
	V1MBMSSessionStopResponse:              StageFinal,
	V1MBMSSessionUpdateResponse:            StageFinal,
}

var v2Stages = map[uint8]Stage{
	V2EchoRequest:                                StageInitial,
	V2CreateSessionRequest:                       StageInitial,
	V2ModifyBearerRequest:                        StageInitial,
	V2DeleteSessionRequest:                       StageInitial,
	V2ChangeNotificationRequest:                  StageInitial,
	V2ModifyBearerCommand:                        StageInitial,
	V2DeleteBearerCommand:                        StageInitial,
	V2BearerResourceCommand:                      StageInitial,
	V2DeletePDNConnectionSetRequest:              StageInitial,
	V2IdentificationRequest:                      StageInitial,
	V2ContextRequest:                             StageInitial,
	V2ForwardRelocationRequest:                   StageInitial,
	V2ForwardRelocationCompleteNotification:      StageInitial,
	V2RelocationCancelRequest:                    StageInitial,
	V2DetachNotification:                         StageInitial,
	V2SuspendNotification:                        StageInitial,
	V2ResumeNotification:                         StageInitial,
	V2CreateIndirectDataForwardingTunnelRequest:  StageInitial,
	V2DeleteIndirectDataForwardingTunnelRequest:  StageInitial,
	V2ReleaseAccessBearersRequest:                StageInitial,
	V2DownlinkDataNotification:                   StageInitial,
	V2PGWRestartNotification:                     StageInitial,
	V2UpdatePDNConnectionSetRequest:              StageInitial,
	V2ModifyAccessBearersRequest:                 StageInitial,
	V2MBMSSessionStartRequest:                    StageInitial,
	V2MBMSSessionUpdateRequest:                   StageInitial,
	V2MBMSSessionStopRequest:                     StageInitial,
	V2ContextResponse:                            StageIntermediate,
	V2EchoResponse:                               StageFinal,
	V2CreateSessionResponse:                      StageFinal,
	V2ModifyBearerResponse:                       StageFinal,
	V2DeleteSessionResponse:                      StageFinal,
	V2ChangeNotificationResponse:                 StageFinal,
	V2ModifyBearerFailureIndication:              StageFinal,
	V2DeleteBearerFailureIndication:              StageFinal,
	V2BearerResourceFailureIndication:            StageFinal,
	V2CreateBearerResponse:                       StageFinal,
	V2UpdateBearerResponse:                       StageFinal,
	V2DeleteBearerResponse:                       StageFinal,
	V2DeletePDNConnectionSetResponse:             StageFinal,
	V2IdentificationResponse:                     StageFinal,
	V2ContextAcknowledge:                         StageFinal,
	V2ForwardRelocationResponse:                  StageFinal,
	V2ForwardRelocationCompleteAcknowledge:       StageFinal,
	V2RelocationCancelResponse:                   StageFinal,
	V2DetachAcknowledge:                          StageFinal,
	V2SuspendAcknowledge:                         StageFinal,
	V2ResumeAcknowledge:                          StageFinal,
	V2CreateIndirectDataForwardingTunnelResponse: StageFinal,
	V2DeleteIndirectDataForwardingTunnelResponse: StageFinal,
	V2ReleaseAccessBearersResponse:               StageFinal,
	V2DownlinkDataNotificationAcknowledge:        StageFinal,
	V2PGWRestartNotificationAcknowledge:          StageFinal,
	V2UpdatePDNConnectionSetResponse:             StageFinal,
	V2ModifyAccessBearersResponse:                StageFinal,
	V2MBMSSessionStartResponse:                   StageFinal,
	V2MBMSSessionUpdateResponse:                  StageFinal,
	V2MBMSSessionStopResponse:                    StageFinal,
}

// StageOf classifies a message type. The xid matters only for the GTPv2
// bearer requests, which are Intermediate when they answer a bearer command
// and Initial otherwise.
func StageOf(version, msgType uint8, xid uint32) Stage {
	switch version {
	case Version1:
		return v1Stages[msgType]
	case Version2:
		switch msgType {
		case V2CreateBearerRequest, V2UpdateBearerRequest, V2DeleteBearerRequest:
			if xid&CommandFlag != 0 {
				return StageIntermediate
			}
			return StageInitial
		}
		return v2Stages[msgType]
	}
	return StageUnknown
}

// IsCommand reports whether a GTPv2 message type starts a command-triggered
// procedure, whose sequence ids carry CommandFlag.
func IsCommand(version, msgType uint8) bool {
	if version != Version2 {
		return false
	}
	switch msgType {
	case V2ModifyBearerCommand, V2DeleteBearerCommand, V2BearerResourceCommand:
		return true
	}
	return false
}

// IsFailureIndication reports whether a GTPv2 message type is the failure
// answer to a bearer command.
func IsFailureIndication(version, msgType uint8) bool {
	if version != Version2 {
		return false
	}
	switch msgType {
	case V2ModifyBearerFailureIndication, V2DeleteBearerFailureIndication, V2BearerResourceFailureIndication:
		return true
	}
	return false
}
