package constants

// Auth protocol constants
//
// Command ids, fixed message sizes and reply codes of the client ↔ auth server
// handshake. All multi-byte fields on the wire are little-endian.

// Command ids (first byte of every message, both directions).
const (
	CmdAuthLogonChallenge     = 0x00
	CmdAuthLogonProof         = 0x01
	CmdAuthReconnectChallenge = 0x02
	CmdAuthReconnectProof     = 0x03
	CmdRealmList              = 0x10
	CmdXferInitiate           = 0x30
	CmdXferData               = 0x31
	CmdXferAccept             = 0x32
	CmdXferResume             = 0x33
	CmdXferCancel             = 0x34
)

// Client message sizes
const (
	// ChallengeHeaderSize is cmd + error + size:u16. The size field counts
	// the bytes that follow it.
	ChallengeHeaderSize = 4

	// ChallengeFixedSize is the challenge body up to and including I_len.
	//   cmd(1) error(1) size(2) gamename(4) version(3) build(2) platform(4)
	//   os(4) country(4) timezone(4) ip(4) I_len(1)
	ChallengeFixedSize = 34

	// LogonProofSize is cmd(1) A(32) M1(20) crc(20) nkeys(1) securityFlags(1).
	LogonProofSize = 75

	// ReconnectProofSize is cmd(1) R1(16) R2(20) R3(20) nkeys(1).
	ReconnectProofSize = 58

	// RealmListRequestSize is cmd(1) + 4 unused bytes.
	RealmListRequestSize = 5

	XferAcceptSize = 1
	XferResumeSize = 9 // cmd + start offset u64
	XferCancelSize = 1
)

// Logon result codes (second byte of challenge/proof replies).
const (
	LoginSuccess                     = 0x00
	LoginFailed                      = 0x01
	LoginFailed2                     = 0x02
	LoginBanned                      = 0x03
	LoginUnknownAccount              = 0x04
	LoginIncorrectPassword           = 0x05
	LoginAlreadyOnline               = 0x06
	LoginNoTime                      = 0x07
	LoginDBBusy                      = 0x08
	LoginVersionInvalid              = 0x09
	LoginDownloadFile                = 0x0A
	LoginInvalidServer               = 0x0B
	LoginSuspended                   = 0x0C
	LoginNoAccess                    = 0x0D
	LoginSuccessSurvey               = 0x0E
	LoginParentControl               = 0x0F
	LoginLockedEnforced              = 0x10
	LoginTrialEnded                  = 0x11
	LoginUseBattlenet                = 0x12
	LoginAntiIndulgence              = 0x13
	LoginExpired                     = 0x14
	LoginNoGameAccount               = 0x15
	LoginChargeback                  = 0x16
	LoginInternetGameRoomWithoutBnet = 0x17
	LoginGameAccountLocked           = 0x18
	LoginUnlockableLock              = 0x19
	LoginConversionRequired          = 0x20
	LoginDisconnected                = 0xFF
)

// Realm flags
const (
	RealmFlagNone            = 0x00
	RealmFlagVersionMismatch = 0x01
	RealmFlagOffline         = 0x02
	RealmFlagSpecifyBuild    = 0x04
	RealmFlagUnk1            = 0x08
	RealmFlagUnk2            = 0x10
	RealmFlagRecommended     = 0x20
	RealmFlagNew             = 0x40
	RealmFlagFull            = 0x80
)

// Account security levels. Stored values above Administrator are clamped.
const (
	SecPlayer        = 0
	SecModerator     = 1
	SecGameMaster    = 2
	SecAdministrator = 3
)

// Expansion flags of a session, derived from the client build.
const (
	ExpansionNone      = 0x00
	ExpansionPre       = 0x01 // vanilla clients
	ExpansionPost      = 0x02 // expansion clients (build info major >= 2)
	PostExpansionMajor = 2
)

// Security flags sent in the challenge reply.
const (
	SecurityFlagNone          = 0x00
	SecurityFlagPin           = 0x01
	SecurityFlagMatrix        = 0x02
	SecurityFlagAuthenticator = 0x04
)

// Patch transfer
const (
	// XferChunkSize is the largest XFER_DATA payload.
	XferChunkSize = 4096

	// XferFileTag is the file type tag of XFER_INITIATE.
	XferFileTag = "PaTch"
)

// Proof reply extras for expansion clients.
const (
	// AccountFlagProPass is the account flags field of a successful proof.
	AccountFlagProPass = 0x00800000
)
