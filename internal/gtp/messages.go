package gtp

import "strings"

// GTP versions handled by the transaction layer.
const (
	Version1 uint8 = 1
	Version2 uint8 = 2
)

// ControlPort is the registered GTP-C UDP port.
const ControlPort = 2123

// GTPv1-C message types (3GPP TS 29.060).
const (
	V1EchoRequest                          uint8 = 1
	V1EchoResponse                         uint8 = 2
	V1VersionNotSupported                  uint8 = 3
	V1NodeAliveRequest                     uint8 = 4
	V1NodeAliveResponse                    uint8 = 5
	V1RedirectionRequest                   uint8 = 6
	V1RedirectionResponse                  uint8 = 7
	V1CreatePDPContextRequest              uint8 = 16
	V1CreatePDPContextResponse             uint8 = 17
	V1UpdatePDPContextRequest              uint8 = 18
	V1UpdatePDPContextResponse             uint8 = 19
	V1DeletePDPContextRequest              uint8 = 20
	V1DeletePDPContextResponse             uint8 = 21
	V1InitiatePDPContextActivationRequest  uint8 = 22
	V1InitiatePDPContextActivationResponse uint8 = 23
	V1PDUNotificationRequest               uint8 = 27
	V1PDUNotificationResponse              uint8 = 28
	V1PDUNotificationRejectRequest         uint8 = 29
	V1PDUNotificationRejectResponse        uint8 = 30
	V1SendRoutingInfoRequest               uint8 = 32
	V1SendRoutingInfoResponse              uint8 = 33
	V1FailureReportRequest                 uint8 = 34
	V1FailureReportResponse                uint8 = 35
	V1NoteMSGPRSPresentRequest             uint8 = 36
	V1NoteMSGPRSPresentResponse            uint8 = 37
	V1IdentificationRequest                uint8 = 48
	V1IdentificationResponse               uint8 = 49
	V1SGSNContextRequest                   uint8 = 50
	V1SGSNContextResponse                  uint8 = 51
	V1SGSNContextAcknowledge               uint8 = 52
	V1ForwardRelocationRequest             uint8 = 53
	V1ForwardRelocationResponse            uint8 = 54
	V1ForwardRelocationComplete            uint8 = 55
	V1RelocationCancelRequest              uint8 = 56
	V1RelocationCancelResponse             uint8 = 57
	V1ForwardSRNSContext                   uint8 = 58
	V1ForwardRelocationCompleteAcknowledge uint8 = 59
	V1ForwardSRNSContextAcknowledge        uint8 = 60
	V1UERegistrationQueryRequest           uint8 = 61
	V1UERegistrationQueryResponse          uint8 = 62
	V1RANInformationRelay                  uint8 = 70
	V1MBMSNotificationRequest              uint8 = 96
	V1MBMSNotificationResponse             uint8 = 97
	V1MBMSNotificationRejectRequest        uint8 = 98
	V1MBMSNotificationRejectResponse       uint8 = 99
	V1MBMSSessionStartRequest              uint8 = 116
	V1MBMSSessionStartResponse             uint8 = 117
	V1MBMSSessionStopRequest               uint8 = 118
	V1MBMSSessionStopResponse              uint8 = 119
	V1MBMSSessionUpdateRequest             uint8 = 120
	V1MBMSSessionUpdateResponse            uint8 = 121
)

// GTPv2-C message types (3GPP TS 29.274).
const (
	V2EchoRequest                                uint8 = 1
	V2EchoResponse                               uint8 = 2
	V2VersionNotSupportedIndication              uint8 = 3
	V2CreateSessionRequest                       uint8 = 32
	V2CreateSessionResponse                      uint8 = 33
	V2ModifyBearerRequest                        uint8 = 34
	V2ModifyBearerResponse                       uint8 = 35
	V2DeleteSessionRequest                       uint8 = 36
	V2DeleteSessionResponse                      uint8 = 37
	V2ChangeNotificationRequest                  uint8 = 38
	V2ChangeNotificationResponse                 uint8 = 39
	V2ModifyBearerCommand                        uint8 = 64
	V2ModifyBearerFailureIndication              uint8 = 65
	V2DeleteBearerCommand                        uint8 = 66
	V2DeleteBearerFailureIndication              uint8 = 67
	V2BearerResourceCommand                      uint8 = 68
	V2BearerResourceFailureIndication            uint8 = 69
	V2CreateBearerRequest                        uint8 = 95
	V2CreateBearerResponse                       uint8 = 96
	V2UpdateBearerRequest                        uint8 = 97
	V2UpdateBearerResponse                       uint8 = 98
	V2DeleteBearerRequest                        uint8 = 99
	V2DeleteBearerResponse                       uint8 = 100
	V2DeletePDNConnectionSetRequest              uint8 = 101
	V2DeletePDNConnectionSetResponse             uint8 = 102
	V2IdentificationRequest                      uint8 = 128
	V2IdentificationResponse                     uint8 = 129
	V2ContextRequest                             uint8 = 130
	V2ContextResponse                            uint8 = 131
	V2ContextAcknowledge                         uint8 = 132
	V2ForwardRelocationRequest                   uint8 = 133
	V2ForwardRelocationResponse                  uint8 = 134
	V2ForwardRelocationCompleteNotification      uint8 = 135
	V2ForwardRelocationCompleteAcknowledge       uint8 = 136
	V2RelocationCancelRequest                    uint8 = 139
	V2RelocationCancelResponse                   uint8 = 140
	V2DetachNotification                         uint8 = 149
	V2DetachAcknowledge                          uint8 = 150
	V2SuspendNotification                        uint8 = 162
	V2SuspendAcknowledge                         uint8 = 163
	V2ResumeNotification                         uint8 = 164
	V2ResumeAcknowledge                          uint8 = 165
	V2CreateIndirectDataForwardingTunnelRequest  uint8 = 166
	V2CreateIndirectDataForwardingTunnelResponse uint8 = 167
	V2DeleteIndirectDataForwardingTunnelRequest  uint8 = 168
	V2DeleteIndirectDataForwardingTunnelResponse uint8 = 169
	V2ReleaseAccessBearersRequest                uint8 = 170
	V2ReleaseAccessBearersResponse               uint8 = 171
	V2DownlinkDataNotification                   uint8 = 176
	V2DownlinkDataNotificationAcknowledge        uint8 = 177
	V2PGWRestartNotification                     uint8 = 179
	V2PGWRestartNotificationAcknowledge          uint8 = 180
	V2UpdatePDNConnectionSetRequest              uint8 = 200
	V2UpdatePDNConnectionSetResponse             uint8 = 201
	V2ModifyAccessBearersRequest                 uint8 = 211
	V2ModifyAccessBearersResponse                uint8 = 212
	V2MBMSSessionStartRequest                    uint8 = 231
	V2MBMSSessionStartResponse                   uint8 = 232
	V2MBMSSessionUpdateRequest                   uint8 = 233
	V2MBMSSessionUpdateResponse                  uint8 = 234
	V2MBMSSessionStopRequest                     uint8 = 235
	V2MBMSSessionStopResponse                    uint8 = 236
)

var v1Names = map[uint8]string{
	V1EchoRequest:                          "EchoRequest",
	V1EchoResponse:                         "EchoResponse",
	V1VersionNotSupported:                  "VersionNotSupported",
	V1NodeAliveRequest:                     "NodeAliveRequest",
	V1NodeAliveResponse:                    "NodeAliveResponse",
	V1RedirectionRequest:                   "RedirectionRequest",
	V1RedirectionResponse:                  "RedirectionResponse",
	V1CreatePDPContextRequest:              "CreatePDPContextRequest",
	V1CreatePDPContextResponse:             "CreatePDPContextResponse",
	V1UpdatePDPContextRequest:              "UpdatePDPContextRequest",
	V1UpdatePDPContextResponse:             "UpdatePDPContextResponse",
	V1DeletePDPContextRequest:              "DeletePDPContextRequest",
	V1DeletePDPContextResponse:             "DeletePDPContextResponse",
	V1InitiatePDPContextActivationRequest:  "InitiatePDPContextActivationRequest",
	V1InitiatePDPContextActivationResponse: "InitiatePDPContextActivationResponse",
	V1PDUNotificationRequest:               "PDUNotificationRequest",
	V1PDUNotificationResponse:              "PDUNotificationResponse",
	V1PDUNotificationRejectRequest:         "PDUNotificationRejectRequest",
	V1PDUNotificationRejectResponse:        "PDUNotificationRejectResponse",
	V1SendRoutingInfoRequest:               "SendRoutingInfoRequest",
	V1SendRoutingInfoResponse:              "SendRoutingInfoResponse",
	V1FailureReportRequest:                 "FailureReportRequest",
	V1FailureReportResponse:                "FailureReportResponse",
	V1NoteMSGPRSPresentRequest:             "NoteMSGPRSPresentRequest",
	V1NoteMSGPRSPresentResponse:            "NoteMSGPRSPresentResponse",
	V1IdentificationRequest:                "IdentificationRequest",
	V1IdentificationResponse:               "IdentificationResponse",
	V1SGSNContextRequest:                   "SGSNContextRequest",
	V1SGSNContextResponse:                  "SGSNContextResponse",
	V1SGSNContextAcknowledge:               "SGSNContextAcknowledge",
	V1ForwardRelocationRequest:             "ForwardRelocationRequest",
	V1ForwardRelocationResponse:            "ForwardRelocationResponse",
	V1ForwardRelocationComplete:            "ForwardRelocationComplete",
	V1RelocationCancelRequest:              "RelocationCancelRequest",
	V1RelocationCancelResponse:             "RelocationCancelResponse",
	V1ForwardSRNSContext:                   "ForwardSRNSContext",
	V1ForwardRelocationCompleteAcknowledge: "ForwardRelocationCompleteAcknowledge",
	V1ForwardSRNSContextAcknowledge:        "ForwardSRNSContextAcknowledge",
	V1UERegistrationQueryRequest:           "UERegistrationQueryRequest",
	V1UERegistrationQueryResponse:          "UERegistrationQueryResponse",
	V1RANInformationRelay:                  "RANInformationRelay",
	V1MBMSNotificationRequest:              "MBMSNotificationRequest",
	V1MBMSNotificationResponse:             "MBMSNotificationResponse",
	V1MBMSNotificationRejectRequest:        "MBMSNotificationRejectRequest",
	V1MBMSNotificationRejectResponse:       "MBMSNotificationRejectResponse",
	V1MBMSSessionStartRequest:              "MBMSSessionStartRequest",
	V1MBMSSessionStartResponse:             "MBMSSessionStartResponse",
	V1MBMSSessionStopRequest:               "MBMSSessionStopRequest",
	V1MBMSSessionStopResponse:              "MBMSSessionStopResponse",
	V1MBMSSessionUpdateRequest:             "MBMSSessionUpdateRequest",
	V1MBMSSessionUpdateResponse:            "MBMSSessionUpdateResponse",
}

var v2Names = map[uint8]string{
	V2EchoRequest:                                "EchoRequest",
	V2EchoResponse:                               "EchoResponse",
	V2VersionNotSupportedIndication:              "VersionNotSupportedIndication",
	V2CreateSessionRequest:                       "CreateSessionRequest",
	V2CreateSessionResponse:                      "CreateSessionResponse",
	V2ModifyBearerRequest:                        "ModifyBearerRequest",
	V2ModifyBearerResponse:                       "ModifyBearerResponse",
	V2DeleteSessionRequest:                       "DeleteSessionRequest",
	V2DeleteSessionResponse:                      "DeleteSessionResponse",
	V2ChangeNotificationRequest:                  "ChangeNotificationRequest",
	V2ChangeNotificationResponse:                 "ChangeNotificationResponse",
	V2ModifyBearerCommand:                        "ModifyBearerCommand",
	V2ModifyBearerFailureIndication:              "ModifyBearerFailureIndication",
	V2DeleteBearerCommand:                        "DeleteBearerCommand",
	V2DeleteBearerFailureIndication:              "DeleteBearerFailureIndication",
	V2BearerResourceCommand:                      "BearerResourceCommand",
	V2BearerResourceFailureIndication:            "BearerResourceFailureIndication",
	V2CreateBearerRequest:                        "CreateBearerRequest",
	V2CreateBearerResponse:                       "CreateBearerResponse",
	V2UpdateBearerRequest:                        "UpdateBearerRequest",
	V2UpdateBearerResponse:                       "UpdateBearerResponse",
	V2DeleteBearerRequest:                        "DeleteBearerRequest",
	V2DeleteBearerResponse:                       "DeleteBearerResponse",
	V2DeletePDNConnectionSetRequest:              "DeletePDNConnectionSetRequest",
	V2DeletePDNConnectionSetResponse:             "DeletePDNConnectionSetResponse",
	V2IdentificationRequest:                      "IdentificationRequest",
	V2IdentificationResponse:                     "IdentificationResponse",
	V2ContextRequest:                             "ContextRequest",
	V2ContextResponse:                            "ContextResponse",
	V2ContextAcknowledge:                         "ContextAcknowledge",
	V2ForwardRelocationRequest:                   "ForwardRelocationRequest",
	V2ForwardRelocationResponse:                  "ForwardRelocationResponse",
	V2ForwardRelocationCompleteNotification:      "ForwardRelocationCompleteNotification",
	V2ForwardRelocationCompleteAcknowledge:       "ForwardRelocationCompleteAcknowledge",
	V2RelocationCancelRequest:                    "RelocationCancelRequest",
	V2RelocationCancelResponse:                   "RelocationCancelResponse",
	V2DetachNotification:                         "DetachNotification",
	V2DetachAcknowledge:                          "DetachAcknowledge",
	V2SuspendNotification:                        "SuspendNotification",
	V2SuspendAcknowledge:                         "SuspendAcknowledge",
	V2ResumeNotification:                         "ResumeNotification",
	V2ResumeAcknowledge:                          "ResumeAcknowledge",
	V2CreateIndirectDataForwardingTunnelRequest:  "CreateIndirectDataForwardingTunnelRequest",
	V2CreateIndirectDataForwardingTunnelResponse: "CreateIndirectDataForwardingTunnelResponse",
	V2DeleteIndirectDataForwardingTunnelRequest:  "DeleteIndirectDataForwardingTunnelRequest",
	V2DeleteIndirectDataForwardingTunnelResponse: "DeleteIndirectDataForwardingTunnelResponse",
	V2ReleaseAccessBearersRequest:                "ReleaseAccessBearersRequest",
	V2ReleaseAccessBearersResponse:               "ReleaseAccessBearersResponse",
	V2DownlinkDataNotification:                   "DownlinkDataNotification",
	V2DownlinkDataNotificationAcknowledge:        "DownlinkDataNotificationAcknowledge",
	V2PGWRestartNotification:                     "PGWRestartNotification",
	V2PGWRestartNotificationAcknowledge:          "PGWRestartNotificationAcknowledge",
	V2UpdatePDNConnectionSetRequest:              "UpdatePDNConnectionSetRequest",
	V2UpdatePDNConnectionSetResponse:             "UpdatePDNConnectionSetResponse",
	V2ModifyAccessBearersRequest:                 "ModifyAccessBearersRequest",
	V2ModifyAccessBearersResponse:                "ModifyAccessBearersResponse",
	V2MBMSSessionStartRequest:                    "MBMSSessionStartRequest",
	V2MBMSSessionStartResponse:                   "MBMSSessionStartResponse",
	V2MBMSSessionUpdateRequest:                   "MBMSSessionUpdateRequest",
	V2MBMSSessionUpdateResponse:                  "MBMSSessionUpdateResponse",
	V2MBMSSessionStopRequest:                     "MBMSSessionStopRequest",
	V2MBMSSessionStopResponse:                    "MBMSSessionStopResponse",
}

func namesOf(version uint8) map[uint8]string {
	switch version {
	case Version1:
		return v1Names
	case Version2:
		return v2Names
	}
	return nil
}

// MessageTypeName returns a human-readable name for a message type.
func MessageTypeName(version, msgType uint8) string {
	if name, ok := namesOf(version)[msgType]; ok {
		return name
	}
	return "Unknown"
}

// MessageTypeByName resolves a message name, case-insensitively, within the
// given version's table.
func MessageTypeByName(version uint8, name string) (uint8, bool) {
	for t, n := range namesOf(version) {
		if strings.EqualFold(n, name) {
			return t, true
		}
	}
	return 0, false
}

// HasTEID reports whether a GTPv2 message of this type carries the TEID
// field. GTPv1 control headers always carry it.
func HasTEID(version, msgType uint8) bool {
	if version != Version2 {
		return true
	}
	switch msgType {
	case V2EchoRequest, V2EchoResponse, V2VersionNotSupportedIndication:
		return false
	}
	return true
}
