package object

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mlaplanche/microgit/ginternals"
	"github.com/mlaplanche/microgit/internal/readutil"
	"golang.org/x/xerrors"
)

// ErrSignatureInvalid is returned when a commit's author/committer line
// doesn't match the "Name <email> seconds tz" layout.
var ErrSignatureInvalid = errors.New("commit signature is invalid")

// Signature represents the author/committer and time of a commit
type Signature struct {
	Time  time.Time
	Name  string
	Email string
}

// String returns a stringified version of the Signature
func (s Signature) String() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.Time.Unix(), s.Time.Format("-0700"))
}

// IsZero returns whether the signature has Zero value
func (s Signature) IsZero() bool {
	return s.Time.IsZero() && s.Name == "" && s.Email == ""
}

// NewSignature generates a signature at the current date and time
func NewSignature(name, email string) Signature {
	return Signature{
		Name:  name,
		Email: email,
		Time:  time.Now(),
	}
}

// NewSignatureFromBytes decodes a commit's "author"/"committer" field
// value into a Signature. The wire layout is:
//
//	Name <email@domain.tld> seconds tz-offset
//
// e.g. "Melvin Laplanche <melvin.wont.reply@gmail.com> 1566115917 -0700".
// This is the object-on-disk grammar, distinct from the
// "@seconds tz-offset" form the GIT_AUTHOR_DATE/GIT_COMMITTER_DATE
// environment variables use (see the root package's parseIdentityDate).
func NewSignatureFromBytes(b []byte) (Signature, error) {
	sig := Signature{}
	// invalid wraps a plain message in the module's error taxonomy,
	// chaining ErrSignatureInvalid so callers can still errors.Is against it.
	invalid := func(msg string) (Signature, error) {
		return Signature{}, ginternals.NewError(ginternals.KindMalformed, "object.NewSignatureFromBytes", "",
			xerrors.Errorf("%s: %w", msg, ErrSignatureInvalid))
	}
	// malformed wraps a concrete parse error instead of the sentinel,
	// since the caller already gets the parse failure's own detail.
	malformed := func(msg string, cause error) (Signature, error) {
		return Signature{}, ginternals.NewError(ginternals.KindMalformed, "object.NewSignatureFromBytes", "",
			xerrors.Errorf("%s: %w", msg, cause))
	}

	// the name runs up to the opening "<" of the email, with a
	// trailing space trimmed off below
	name := readutil.ReadTo(b, '<')
	if len(name) == 0 {
		if len(b) == 0 {
			return invalid("couldn't retrieve the name")
		}
		return invalid("signature stopped after the name")
	}
	sig.Name = strings.TrimSpace(string(name))
	offset := len(name) + 1 // skip "<"
	if offset >= len(b) {
		if offset == len(b) {
			return invalid("couldn't retrieve the email")
		}
		return invalid("signature stopped after the name")
	}

	// the email sits between the "<" and ">" just consumed above
	email := readutil.ReadTo(b[offset:], '>')
	if len(email) == 0 {
		return invalid("couldn't retrieve the email")
	}
	sig.Email = string(email)
	offset += len(email) + 2 // skip "> "
	if offset >= len(b) {
		return invalid("signature stopped after the email")
	}

	// everything left is "seconds tz-offset"
	timestamp := readutil.ReadTo(b[offset:], ' ')
	if len(email) == 0 { // email was already validated above; unreachable in practice
		return invalid("couldn't retrieve the timestamp")
	}
	offset += len(timestamp) + 1 // skip the space
	if offset >= len(b) {
		return invalid("signature stopped after the timestamp")
	}

	secs, err := strconv.ParseInt(string(timestamp), 10, 64)
	if err != nil {
		return malformed(fmt.Sprintf("invalid timestamp %s", timestamp), err)
	}
	sig.Time = time.Unix(secs, 0)

	// the timezone is parsed against an empty date and its location
	// copied over, rather than reparsing the whole signature
	tz := b[offset:]
	parsedTZ, err := time.Parse("-0700", string(tz))
	if err != nil {
		return malformed(fmt.Sprintf("invalid timezone format %s", tz), err)
	}
	sig.Time = sig.Time.In(parsedTZ.Location())
	return sig, nil
}

// CommitOptions holds the fields of a commit beyond its tree and author.
type CommitOptions struct {
	Message string
	GPGSig  string
	// Committer defaults to the author when left zero.
	Committer Signature
	ParentsID []ginternals.Oid
}

// Commit is a single point in the history graph: a tree snapshot plus
// the author/committer signatures and parent links that give it a
// place in that graph.
type Commit struct {
	rawObject *Object

	author    Signature
	committer Signature

	gpgSig  string
	message string

	parentIDs []ginternals.Oid
	treeID    ginternals.Oid
}

// NewCommit builds a Commit from a tree and author, without verifying
// that treeID or any parent Oid actually resolves to a stored object.
func NewCommit(treeID ginternals.Oid, author Signature, opts *CommitOptions) *Commit {
	c := &Commit{
		treeID:    treeID,
		author:    author,
		committer: opts.Committer,
		message:   opts.Message,
		parentIDs: opts.ParentsID,
		gpgSig:    opts.GPGSig,
	}

	if c.committer.IsZero() {
		c.committer = author
	}
	c.rawObject = c.ToObject()

	return c
}

// NewCommitFromObject parses a raw commit object's payload into a
// Commit. The wire format is a run of "key value" header lines
// (tree, zero or more parent, author, committer, and an optional
// multi-line gpgsig), a blank line, then the free-form message:
//
//	tree <oid>
//	parent <oid>
//	author <signature>
//	committer <signature>
//	gpgsig -----BEGIN PGP SIGNATURE-----
//	 ...
//	 -----END PGP SIGNATURE-----
//
//	<message>
//
// A root commit has zero parent lines; a merge commit has two or
// more. tree and author/committer are mandatory; everything else is
// optional, per C8's commit grammar.
func NewCommitFromObject(o *Object) (*Commit, error) {
	if o.typ != TypeCommit {
		return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewCommitFromObject", "",
			xerrors.Errorf("type %s is not a commit: %w", o.typ, ErrObjectInvalid))
	}
	ci := &Commit{
		rawObject: o,
	}
	offset := 0
	objData := o.Bytes()
	for {
		line := readutil.ReadTo(objData[offset:], '\n')
		offset += len(line) + 1 // +1 to count the \n

		// an empty first line means the header never even started
		if len(line) == 0 && offset == 1 {
			return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewCommitFromObject", "",
				xerrors.Errorf("missing header: %w", ErrCommitInvalid))
		}

		// the blank line separating header from message
		if len(line) == 0 {
			if offset < len(objData) {
				ci.message = string(objData[offset:])
			}
			break
		}

		// otherwise it's a "key value" header line
		kv := bytes.SplitN(line, []byte{' '}, 2)
		var err error
		switch string(kv[0]) {
		case "tree":
			ci.treeID, err = ginternals.NewOidFromChars(kv[1])
			if err != nil {
				return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewCommitFromObject", "",
					xerrors.Errorf("could not parse tree id %#v: %w", kv[1], err))
			}
		case "parent":
			oid, err := ginternals.NewOidFromChars(kv[1])
			if err != nil {
				return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewCommitFromObject", "",
					xerrors.Errorf("could not parse parent id %#v: %w", kv[1], err))
			}
			ci.parentIDs = append(ci.parentIDs, oid)
		case "author":
			ci.author, err = NewSignatureFromBytes(kv[1])
			if err != nil {
				return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewCommitFromObject", "",
					xerrors.Errorf("could not parse author signature [%s]: %w", string(kv[1]), err))
			}
		case "committer":
			ci.committer, err = NewSignatureFromBytes(kv[1])
			if err != nil {
				return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewCommitFromObject", "",
					xerrors.Errorf("could not parse committer signature [%s]: %w", string(kv[1]), err))
			}
		case "gpgsig":
			// the signature body runs, line-wrapped, until its own
			// closing marker; it's carried as one opaque string
			begin := string(kv[1]) + "\n"
			end := "-----END PGP SIGNATURE-----"
			i := bytes.Index(objData[offset:], []byte(end))
			ci.gpgSig = begin + string(objData[offset:offset+i]) + end
			offset += len(end) + i + 1 // +1 to count the \n
		}
	}

	if ci.author.IsZero() {
		return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewCommitFromObject", "",
			xerrors.Errorf("missing author: %w", ErrCommitInvalid))
	}
	if ci.treeID.IsZero() {
		return nil, ginternals.NewError(ginternals.KindMalformed, "object.NewCommitFromObject", "",
			xerrors.Errorf("missing tree: %w", ErrCommitInvalid))
	}

	return ci, nil
}

// ID returns the SHA of the commit object
func (c *Commit) ID() ginternals.Oid {
	return c.rawObject.ID()
}

// Author returns the Signature of the person that made the changes
func (c *Commit) Author() Signature {
	return c.author
}

// Committer returns the Signature of the person that created the commit
func (c *Commit) Committer() Signature {
	return c.committer
}

// Message returns the commit's message
func (c *Commit) Message() string {
	return c.message
}

// ParentIDs returns the list of SHA of the parent commits (if any)
// - The first commit of an orphan branch has 0 parents
// - A regular commit or the result of a fast-forward merge has 1 parent
// - A true merge (no fast-forward) as 2 or more parents
func (c *Commit) ParentIDs() []ginternals.Oid {
	out := make([]ginternals.Oid, len(c.parentIDs))
	copy(out, c.parentIDs)
	return out
}

// TreeID returns the SHA of the commit's tree
func (c *Commit) TreeID() ginternals.Oid {
	return c.treeID
}

// GPGSig returns the GPG signature of the commit, if any
func (c *Commit) GPGSig() string {
	return c.gpgSig
}

// ToObject returns the underlying Object
func (c *Commit) ToObject() *Object {
	if c.rawObject != nil {
		return c.rawObject
	}

	// bytes.Buffer's Write* methods never return an error, so none of
	// the writes below are checked
	buf := new(bytes.Buffer)
	buf.WriteString("tree ")
	buf.WriteString(c.treeID.String())
	buf.WriteByte('\n')

	for _, p := range c.parentIDs {
		buf.WriteString("parent ")
		buf.WriteString(p.String())
		buf.WriteByte('\n')
	}

	buf.WriteString("author ")
	buf.WriteString(c.Author().String())
	buf.WriteByte('\n')

	buf.WriteString("committer ")
	buf.WriteString(c.Committer().String())
	buf.WriteByte('\n')

	if c.gpgSig != "" {
		buf.WriteString("gpgsig ")
		buf.WriteString(c.gpgSig)
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')

	buf.WriteString(c.message)
	return New(TypeCommit, buf.Bytes())
}
