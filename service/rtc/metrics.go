// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package rtc

type Metrics interface {
	IncStatsPolls()
	IncStatsReports(reportType string)
	IncRTCErrors(errType string)
	IncRTCPPackets(pktType string)
	IncRTCConnState(state string)
	SetSessionState(state string)
}
