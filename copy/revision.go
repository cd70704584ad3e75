package copy

import "github.com/copyctl/copyctl/ra"

// resolveRevnum resolves a revision selector against an open session to a
// concrete revision number. Only RevNumber and RevHead carry enough
// information on their own to resolve without a date-to-revision lookup
// primitive (not part of the ra.Session contract); any other kind falls
// back to the latest revision, which matches RevHead's behavior and is
// the conservative choice for kinds that only make sense against a
// working copy and should never reach here.
func resolveRevnum(session ra.Session, op ra.Revision) (int64, error) {
	switch op.Kind {
	case ra.RevNumber:
		return op.Num, nil
	default:
		return session.LatestRevnum()
	}
}
