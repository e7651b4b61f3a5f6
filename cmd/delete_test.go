/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package cmd

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caltechads/deployfish/internal/prompt"
)

func TestDeleteCommand_CancelledLeavesAWSUntouched(t *testing.T) {
	s, clients := newMockSession(t, testConfigYAML)
	withSession(t, s)

	mockPrompter := &prompt.MockPrompter{}
	mockPrompter.On("Confirm", mock.Anything).Return(false, nil).Once()
	oldPrompter := prompt.GetDefaultPrompter()
	prompt.SetPrompter(mockPrompter)
	defer prompt.SetPrompter(oldPrompter)

	err := executeCommand("delete", "web")
	require.NoError(t, err)
	mockPrompter.AssertExpectations(t)
	clients.MockECS.AssertNotCalled(t, "DeleteService", mock.Anything, mock.Anything)
	clients.MockECS.AssertNotCalled(t, "UpdateService", mock.Anything, mock.Anything)
}
