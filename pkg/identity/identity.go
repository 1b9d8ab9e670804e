package identity

import (
	"github.com/foodshare/pickup-tracker/pkg/file"
)

// Participant roles within a pickup session.
const (
	RoleDonor     = "donor"
	RoleRecipient = "recipient"
	RoleVolunteer = "volunteer"
)

// Identity holds the participant's stable identifier and profile metadata.
type Identity struct {
	ID   string `json:"participant_id,omitempty"`
	Name string `json:"display_name,omitempty"`
	Role string `json:"role,omitempty"`
}

// ParticipantInfoInterface defines methods for managing the local participant identity.
type ParticipantInfoInterface interface {
	LoadIdentity() error
	SaveParticipantID(participantID string) error
	GetParticipantID() string
	GetIdentity() *Identity
}

// ParticipantInfo manages the participant identity and its associated file operations.
type ParticipantInfo struct {
	IdentityFile string
	Identity     Identity
	fileOps      file.FileOperations
}

// NewParticipantInfo initializes a new ParticipantInfo instance.
func NewParticipantInfo(filePath string, fileOps file.FileOperations) ParticipantInfoInterface {
	return &ParticipantInfo{
		IdentityFile: filePath,
		fileOps:      fileOps,
		Identity:     Identity{},
	}
}

// LoadIdentity reads the participant information from the file and populates the Identity field.
// A missing file is not an error: it is a first run, and an id is provisioned
// and saved afterwards.
func (p *ParticipantInfo) LoadIdentity() error {
	exists, err := p.fileOps.IsFileExists(p.IdentityFile)
	if err != nil {
		return err
	}
	if !exists {
		p.Identity = Identity{}
		return nil
	}

	return p.fileOps.ReadJsonFile(p.IdentityFile, &p.Identity)
}

// GetIdentity returns the current participant Identity.
func (p *ParticipantInfo) GetIdentity() *Identity {
	return &p.Identity
}

// GetParticipantID returns the current participant ID.
func (p *ParticipantInfo) GetParticipantID() string {
	return p.Identity.ID
}

// SaveParticipantID updates the participant ID in the Identity field and writes it back to the file.
func (p *ParticipantInfo) SaveParticipantID(participantID string) error {
	p.Identity.ID = participantID
	return p.fileOps.WriteJsonFile(p.IdentityFile, p.Identity)
}
