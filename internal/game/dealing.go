package game

// The dealing protocol runs in four gated phases per hand:
//
//	commit: the operator ingests 15 ciphertexts, five per batch
//	blind:  every slot is homomorphically combined with a fresh encrypted
//	        offset the operator cannot predict
//	reveal: an external beacon fixes the seat rotation, only after the
//	        blinding completed
//	assign: seats receive their rotated hole slots and decrypt grants
//
// The operator only ever addresses raw slot indices during commit and blind,
// so it cannot steer which seat ends up with which card, nor recognize its
// own ciphertext once blinded. Batches are retryable: completed work is
// tracked per slot and skipped on replay.

// SubmitBatch ingests one commit batch of five ciphertexts into pool slots
// 5b..5b+4. Batches may arrive in any order; re-submitting a completed batch
// fails.
func SubmitBatch(g *Game, eng Engine, batch uint8, cards [BatchSize][]byte, inputType uint8) error {
	if g.Stage != StageWaiting {
		return ErrInvalidStage.Wrapf("submit in %s", g.Stage)
	}
	if batch >= SubmitBatches {
		return ErrInvalidBatchIndex.Wrapf("batch %d", batch)
	}
	if g.CardsSubmitted {
		return ErrCardsAlreadySubmitted
	}
	if g.SubmittedBatches.Test(int(batch)) {
		return ErrCardsAlreadySubmitted.Wrapf("batch %d", batch)
	}

	// Ingest everything before touching the pool so a failed call leaves no
	// partial batch behind.
	var handles [BatchSize]Handle
	for i, ct := range cards {
		h, err := eng.Ingest(ct, inputType)
		if err != nil {
			return err
		}
		handles[i] = h
	}

	base := int(batch) * BatchSize
	for i, h := range handles {
		g.CardPool[base+i] = h
	}
	g.SubmittedBatches.Set(int(batch))
	if g.SubmittedBatches == AllBelow(SubmitBatches) {
		g.CardsSubmitted = true
	}
	return nil
}

// ApplyOffsetBatch blinds one batch of five slots with the hand's encrypted
// offset. The first batch-0 call draws the offset; batches must complete in
// order 0, 1, 2; slots already blinded are skipped, so retrying a batch is
// safe and changes nothing.
func ApplyOffsetBatch(g *Game, eng Engine, batch uint8) error {
	if !g.CardsSubmitted {
		return ErrCardsNotSubmitted
	}
	if g.OffsetApplied {
		return ErrOffsetAlreadyApplied
	}
	if g.Stage != StageWaiting {
		return ErrInvalidStage.Wrapf("blind in %s", g.Stage)
	}
	if batch >= SubmitBatches {
		return ErrInvalidBatchIndex.Wrapf("batch %d", batch)
	}
	if batch > 0 && g.OffsetBatch < batch {
		return ErrOffsetBatchOutOfOrder.Wrapf("batch %d before %d completed", batch, batch-1)
	}

	offset := g.EncryptedOffset
	if batch == 0 && g.OffsetBatch == 0 {
		h, err := eng.Rand()
		if err != nil {
			return err
		}
		offset = h
	}

	base := int(batch) * BatchSize
	var blinded [BatchSize]Handle
	touched := [BatchSize]bool{}
	for i := 0; i < BatchSize; i++ {
		slot := base + i
		if g.CardsOffset.Test(slot) {
			continue
		}
		h, err := eng.Combine(g.CardPool[slot], offset)
		if err != nil {
			return err
		}
		blinded[i] = h
		touched[i] = true
	}

	g.EncryptedOffset = offset
	for i := 0; i < BatchSize; i++ {
		if !touched[i] {
			continue
		}
		g.CardPool[base+i] = blinded[i]
		g.CardsOffset.Set(base + i)
	}
	if g.OffsetBatch < batch+1 {
		g.OffsetBatch = batch + 1
	}
	if batch == SubmitBatches-1 && g.AllCardsOffset() {
		g.OffsetBatch = OffsetBatchDone
		g.OffsetApplied = true
	}
	return nil
}

// RevealPosition fixes the hand's seat rotation from the beacon. Requires
// the commit and blind phases to have completed, so the rotation derives
// from information unavailable to the operator at commit time. Runs once.
func RevealPosition(g *Game, beacon Beacon) error {
	if !g.CardsSubmitted {
		return ErrCardsNotSubmitted
	}
	if !g.OffsetApplied {
		return ErrOffsetNotApplied
	}
	if g.PositionRevealed() {
		return ErrPositionAlreadyRevealed
	}
	v, err := beacon.Current()
	if err != nil {
		return err
	}
	g.PositionOffset = uint8(v%HoleSlots) + 1
	return nil
}

// DealSeat assigns seat its two rotated hole slots, initializes the seat
// record with the escrowed chips, and grants owner decryption on exactly
// those two handles. Dealing the final seat advances the stage to PreFlop.
func DealSeat(g *Game, eng Engine, seat uint8, owner string, chips uint64) error {
	if !g.CardsSubmitted {
		return ErrCardsNotSubmitted
	}
	if !g.OffsetApplied {
		return ErrOffsetNotApplied
	}
	if !g.PositionRevealed() {
		return ErrPositionNotRevealed
	}
	if g.Stage != StageWaiting {
		return ErrInvalidStage.Wrapf("deal in %s", g.Stage)
	}
	if seat >= g.PlayerCount {
		return ErrInvalidSeatIndex.Wrapf("seat %d of %d", seat, g.PlayerCount)
	}
	if g.Seats[seat] != nil {
		return ErrSeatAlreadyDealt.Wrapf("seat %d", seat)
	}
	if g.CardsDealtCount >= g.PlayerCount {
		return ErrAllCardsDealt
	}

	h1 := g.CardPool[g.HoleSlot(seat, 0)]
	h2 := g.CardPool[g.HoleSlot(seat, 1)]
	if err := eng.GrantDecrypt(h1, owner); err != nil {
		return err
	}
	if err := eng.GrantDecrypt(h2, owner); err != nil {
		return err
	}

	g.Seats[seat] = &Seat{
		SeatIndex: seat,
		Chips:     chips,
		HoleCard1: h1,
		HoleCard2: h2,
	}
	g.CardsDealtCount++
	if g.CardsDealtCount == g.PlayerCount {
		g.Stage = StagePreFlop
	}
	return nil
}
